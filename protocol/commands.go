package protocol

import (
  "errors"

  pkgerrors "github.com/pkg/errors"
)

// GATT identifiers of the device's LWP3 service; the single characteristic
// carries both notifications and command writes.
const (
  ServiceUUID        = "00001623-1212-efde-1623-785feabcd123"
  CharacteristicUUID = "00001624-1212-efde-1623-785feabcd123"
)

var (
  ErrInvalidPort = errors.New("unsupported port")
  ErrInvalidMode = errors.New("unsupported mode for port")
)

// valid ports and the highest mode each accepts.
var portMaxMode = map[byte]byte{
  0: 1, // motion
  1: 1, // camera
  2: 0, // pants
  3: 3,
  4: 1,
  6: 0, // voltage, most likely
}

// Subscription commands written after connecting, one per notification
// stream. Each is a port input format setup for the port's reporting mode.
func SubscribeIMU() []byte {
  return []byte{0x0a, 0x00, 0x41, 0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x01}
}

func SubscribeRGB() []byte {
  return []byte{0x0a, 0x00, 0x41, 0x01, 0x00, 0x05, 0x00, 0x00, 0x00, 0x01}
}

func SubscribePants() []byte {
  return []byte{0x0a, 0x00, 0x41, 0x02, 0x00, 0x05, 0x00, 0x00, 0x00, 0x01}
}

// RequestPortValue encodes a port information request; the device answers
// with a port value notification on the requested port.
func RequestPortValue(port byte) ([]byte, error) {
  if err := ValidatePort(port); err != nil {
    return nil, err
  }

  return []byte{0x05, 0x00, 0x21, port, 0x00}, nil
}

// SetVolume encodes a hub property update for the speaker volume. Out of
// range values are clamped to [0, 100], never rejected.
func SetVolume(volume int) []byte {
  if volume < 0 {
    volume = 0
  } else if volume > 100 {
    volume = 100
  }

  return []byte{0x06, 0x00, 0x01, 0x12, 0x01, byte(volume)}
}

// ConfigurePort encodes a port input format setup for the given port and
// mode, optionally enabling value change notifications.
func ConfigurePort(port, mode byte, notifications bool) ([]byte, error) {
  if err := ValidatePort(port); err != nil {
    return nil, err
  }

  if mode > portMaxMode[port] {
    return nil, pkgerrors.Wrapf(ErrInvalidMode,
      "port %d accepts modes 0-%d, got %d", port, portMaxMode[port], mode)
  }

  var notif byte
  if notifications {
    notif = 0x01
  }

  return []byte{0x0a, 0x00, 0x41, port, mode, 0x01, 0x00, 0x00, 0x00, notif}, nil
}

func Disconnect() []byte {
  return []byte{0x04, 0x00, 0x02, 0x02}
}

func PowerOff() []byte {
  return []byte{0x04, 0x00, 0x02, 0x01}
}

func ValidatePort(port byte) error {
  if _, ok := portMaxMode[port]; !ok {
    return pkgerrors.Wrapf(ErrInvalidPort, "use a supported port (0,1,2,3,4,6), got %d", port)
  }

  return nil
}
