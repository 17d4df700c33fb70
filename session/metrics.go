package session

import "github.com/prometheus/client_golang/prometheus"

var (
	framesDecodedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mario_driver_frames_decoded_total",
		Help: "Notification frames decoded successfully, by event kind.",
	}, []string{"kind"})
	framesMalformedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mario_driver_frames_malformed_total",
		Help: "Notification frames dropped because they were too short to decode.",
	})
	hooksDispatchedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mario_driver_hooks_dispatched_total",
		Help: "Event hook invocations, panicking hooks included.",
	})
	hookPanicsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mario_driver_hook_panics_total",
		Help: "Event hooks that panicked during dispatch.",
	})
	disconnectsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mario_driver_disconnects_total",
	})
	reconnectsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mario_driver_reconnect_attempts_total",
	})
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		framesDecodedCounter,
		framesMalformedCounter,
		hooksDispatchedCounter,
		hookPanicsCounter,
		disconnectsCounter,
		reconnectsCounter,
	)
}
