package protocol

import (
  "encoding/binary"
  "errors"

  pkgerrors "github.com/pkg/errors"
  "github.com/rs/zerolog/log"
)

var (
  // ErrMalformedFrame marks a frame too short for its discriminator path.
  // Codes missing from a lookup table are not malformed: they degrade to a
  // placeholder name instead.
  ErrMalformedFrame = errors.New("malformed frame")
)

// Message type discriminators at frame[2], sub-discriminators at frame[3].
const (
  msgHubProperty   = 0x01
  msgHubAction     = 0x02
  msgPortAttach    = 0x04
  msgPortValue     = 0x45
  msgPortModeAck   = 0x47

  portMotion = 0x00
  portCamera = 0x01
  portPants  = 0x02
  portAux    = 0x03

  // HubActionWillDisconnect is the device's announcement that it is about to
  // drop the connection; the session must schedule an orderly disconnect.
  HubActionWillDisconnect = 0x31
)

// Decode maps one raw notification frame to its semantic event. Every frame
// carries its type at byte 2 and, for port values, the port at byte 3; the
// layout is fixed by the device and matched here byte for byte.
func Decode(frame []byte) (Event, error) {
  if len(frame) < 6 {
    return Event{}, pkgerrors.Wrapf(ErrMalformedFrame,
      "frame %x is %d bytes, want at least 6", frame, len(frame))
  }

  e := Event{Raw: frame}

  switch frame[2] {
  case msgPortValue:
    return decodePortValue(frame)

  case msgHubAction:
    e.Kind = KindHubAction
    e.Code = frame[3]
    e.Name = hubActionName(frame[3])
    return e, nil

  case msgPortAttach:
    e.Kind = KindPortAttach
    e.Port = frame[3]
    e.Attached = frame[4] != 0

    if !e.Attached {
      // detach never happens on this device in normal operation; log it but
      // keep decoding.
      log.Warn().
        Uint8("Port", e.Port).
        Hex("Frame", frame).
        Msg("protocol: port detached, this shouldn't happen")
    }

    return e, nil

  case msgPortModeAck:
    if len(frame) < 10 {
      return Event{}, pkgerrors.Wrapf(ErrMalformedFrame,
        "port mode ack frame %x is %d bytes, want at least 10", frame, len(frame))
    }

    e.Kind = KindPortModeChange
    e.Port = frame[3]
    e.Mode = frame[4]
    e.Notifications = frame[9] != 0
    return e, nil

  case msgHubProperty:
    if frame[4] == 0x06 { // property operation: update
      e.Kind = KindHubProperty
      e.Code = frame[3]
      e.Name = hubPropertyName(frame[3])
      e.Payload = frame[5:]
      return e, nil
    }
  }

  e.Kind = KindUnknown
  e.Payload = frame
  return e, nil
}

func decodePortValue(frame []byte) (Event, error) {
  e := Event{Raw: frame}

  switch frame[3] {
  case portCamera:
    if len(frame) < 7 {
      return Event{}, pkgerrors.Wrapf(ErrMalformedFrame,
        "camera frame %x is %d bytes, want at least 7", frame, len(frame))
    }

    switch {
    case frame[5] == 0xff && frame[6] == 0xff:
      // transient idle signal between readings; decoded, not dispatched.
      e.Kind = KindCameraIdle
    case frame[5] == 0x00:
      e.Kind = KindTile
      e.Code = frame[4]
      e.Name = tileName(frame[4])
    case frame[5] == 0xff:
      e.Kind = KindGroundColor
      e.Code = frame[6]
      e.Name = groundColorName(frame[6])
    default:
      e.Kind = KindUnknown
      e.Payload = frame[4:]
    }

  case portMotion:
    if len(frame) < 7 {
      return Event{}, pkgerrors.Wrapf(ErrMalformedFrame,
        "motion frame %x is %d bytes, want at least 7", frame, len(frame))
    }

    // when bytes 4-5 repeat at 6-7 the device is reporting a gesture bitmask
    // instead of raw axes. Experimental, and known to misreport.
    if len(frame) >= 8 && frame[4] == frame[6] && frame[5] == frame[7] {
      e.Kind = KindGesture
      e.Gesture = decodeGestures(binary.BigEndian.Uint16(frame[4:6]))
    } else {
      e.Kind = KindAcceleration
      // Go casts with 2's complement, which is exactly the device's encoding.
      e.X = int8(frame[4])
      e.Y = int8(frame[5])
      e.Z = int8(frame[6])
    }

  case portPants:
    e.Kind = KindPants
    e.Code = frame[4]
    e.Name = pantsName(frame[4])

  case portAux:
    if len(frame) < 7 {
      return Event{}, pkgerrors.Wrapf(ErrMalformedFrame,
        "aux port frame %x is %d bytes, want at least 7", frame, len(frame))
    }

    if frame[4] == 0x13 && frame[5] == 0x01 {
      e.Kind = KindTileStomp
      e.Code = frame[6]
      e.Name = tileName(frame[6])
    } else {
      e.Kind = KindUnknown
      e.Payload = frame[4:]
    }

  default:
    e.Kind = KindUnknown
    e.Payload = frame[4:]
  }

  return e, nil
}

func decodeGestures(mask uint16) string {
  var out string

  for _, g := range gestureBits {
    if mask&g.mask != 0 {
      out += g.name
    }
  }

  return out
}
