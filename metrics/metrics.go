package metrics

import (
  "github.com/prometheus/client_golang/prometheus"

  "github.com/brickbt/go-mario-driver/session"
)

var (
  descState = prometheus.NewDesc(
    "mario_session_state",
    "Current session state. 0=idle 1=searching 2=connecting 3=connected 4=disconnecting 5=stopped.",
    nil,
    nil,
  )

  descAcceleration = prometheus.NewDesc(
    "mario_acceleration",
    "Most recent accelerometer reading per axis.",
    []string{"axis"},
    nil,
  )

  descGround = prometheus.NewDesc(
    "mario_ground_info",
    "Most recent tile or ground color seen by the camera. Always 1.",
    []string{"value"},
    nil,
  )

  descPants = prometheus.NewDesc(
    "mario_pants_info",
    "Most recent pants the device reported wearing. Always 1.",
    []string{"value"},
    nil,
  )

  descRetries = prometheus.NewDesc(
    "mario_scan_retries",
    "Consecutive failed scan cycles in the current search.",
    nil,
    nil,
  )
)

type collector struct {
  session *session.Session
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
  prometheus.DescribeByCollect(c, ch)
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
  s := c.session

  ch <- prometheus.MustNewConstMetric(
    descState,
    prometheus.GaugeValue,
    float64(s.State()),
  )

  ch <- prometheus.MustNewConstMetric(
    descRetries,
    prometheus.GaugeValue,
    float64(s.Retries()),
  )

  x, y, z := s.Acceleration()

  for axis, v := range map[string]int8{"x": x, "y": y, "z": z} {
    ch <- prometheus.MustNewConstMetric(
      descAcceleration,
      prometheus.GaugeValue,
      float64(v),
      axis,
    )
  }

  if ground := s.Ground(); ground != "" {
    ch <- prometheus.MustNewConstMetric(descGround, prometheus.GaugeValue, 1, ground)
  }

  if pants := s.Pants(); pants != "" {
    ch <- prometheus.MustNewConstMetric(descPants, prometheus.GaugeValue, 1, pants)
  }
}

// RegisterCollector exposes the session's cached last-known values on the
// given registry.
func RegisterCollector(s *session.Session, reg prometheus.Registerer) {
  reg.MustRegister(&collector{session: s})
}
