package ble

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/brickbt/go-mario-driver/protocol"
	"github.com/brickbt/go-mario-driver/session"
)

var (
	successfulConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mario_driver_ble_successful_connections_total",
	})
	failedConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mario_driver_ble_failed_connections_total",
	})
	disconnectsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mario_driver_ble_disconnections_total",
	})
)

// conn is one GATT connection with the device's LWP3 characteristic resolved.
// Implements session.Conn.
type conn struct {
	client ble.Client
	char   *ble.Characteristic
}

// Connect dials the device and resolves the characteristic that carries both
// notifications and command writes. Implements session.Transport.
func (h *Handle) Connect(ctx context.Context, addr string) (session.Conn, error) {
	client, err := ble.Dial(ctx, ble.NewAddr(addr))

	if err != nil {
		failedConnectionsCounter.Inc()
		return nil, errors.Wrapf(err, "failed to connect to %v", addr)
	}

	profile, err := client.DiscoverProfile(true)

	if err != nil {
		client.CancelConnection()
		failedConnectionsCounter.Inc()
		return nil, errors.Wrap(err, "failed to discover GATT profile")
	}

	char := profile.FindCharacteristic(
		ble.NewCharacteristic(ble.MustParse(protocol.CharacteristicUUID)),
	)

	if char == nil {
		client.CancelConnection()
		failedConnectionsCounter.Inc()
		return nil, errors.Errorf("device %v does not expose characteristic %v",
			addr, protocol.CharacteristicUUID)
	}

	successfulConnectionsCounter.Inc()

	log.Debug().Str("Addr", addr).Msg("ble: successfully opened connection to device")

	return &conn{
		client: client,
		char:   char,
	}, nil
}

func (c *conn) Subscribe(_ context.Context, handler func(frame []byte)) error {
	return c.client.Subscribe(c.char, false, func(req []byte) {
		handler(req)
	})
}

func (c *conn) Write(_ context.Context, payload []byte) error {
	return c.client.WriteCharacteristic(c.char, payload, false)
}

func (c *conn) Connected() bool {
	select {
	case <-c.client.Disconnected():
		return false
	default:
		return true
	}
}

func (c *conn) Disconnect() error {
	defer disconnectsCounter.Inc()

	if err := c.client.ClearSubscriptions(); err != nil {
		log.Debug().Err(err).Msg("ble: failed to clear subscriptions on disconnect")
	}

	return c.client.CancelConnection()
}
