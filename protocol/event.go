package protocol

import (
  "fmt"
  "strconv"
)

// Kind classifies a decoded notification frame.
type Kind uint8

const (
  KindUnknown Kind = iota
  KindTile
  KindGroundColor
  KindAcceleration
  KindGesture
  KindPants
  KindTileStomp
  KindHubAction
  KindPortAttach
  KindPortModeChange
  KindHubProperty
  KindCameraIdle
)

func (k Kind) String() string {
  switch k {
  case KindUnknown:
    return "Unknown"
  case KindTile:
    return "Tile"
  case KindGroundColor:
    return "GroundColor"
  case KindAcceleration:
    return "Acceleration"
  case KindGesture:
    return "Gesture"
  case KindPants:
    return "Pants"
  case KindTileStomp:
    return "TileStomp"
  case KindHubAction:
    return "HubAction"
  case KindPortAttach:
    return "PortAttach"
  case KindPortModeChange:
    return "PortModeChange"
  case KindHubProperty:
    return "HubProperty"
  case KindCameraIdle:
    return "CameraIdle"
  default:
    panic("unknown event kind: " + strconv.Itoa(int(k)))
  }
}

// Event is the decoded form of a single notification frame. Only the fields
// relevant to its Kind are populated; Raw always carries the full frame.
type Event struct {
  Kind Kind

  // KindTile, KindGroundColor, KindTileStomp, KindPants, KindHubAction:
  // resolved table name plus the raw code it was resolved from.
  Name string
  Code byte

  // KindAcceleration.
  X, Y, Z int8

  // KindGesture: concatenation of every matched gesture label. Experimental,
  // the device reports these unreliably.
  Gesture string

  // KindPortAttach, KindPortModeChange.
  Port byte
  Attached bool
  Mode byte
  Notifications bool

  // KindHubProperty: trailing payload bytes. KindUnknown: the undecodable tail.
  Payload []byte

  Raw []byte
}

func (e Event) String() string {
  switch e.Kind {
  case KindTile, KindGroundColor, KindTileStomp, KindPants, KindHubAction:
    return fmt.Sprintf("%v[%v (0x%02x)]", e.Kind, e.Name, e.Code)
  case KindAcceleration:
    return fmt.Sprintf("Acceleration[X=%d,Y=%d,Z=%d]", e.X, e.Y, e.Z)
  case KindGesture:
    return fmt.Sprintf("Gesture[%v]", e.Gesture)
  case KindPortAttach:
    if e.Attached {
      return fmt.Sprintf("PortAttach[Port=%d,attached]", e.Port)
    }
    return fmt.Sprintf("PortAttach[Port=%d,detached]", e.Port)
  case KindPortModeChange:
    return fmt.Sprintf("PortModeChange[Port=%d,Mode=%d,Notifications=%v]",
      e.Port, e.Mode, e.Notifications)
  case KindHubProperty:
    return fmt.Sprintf("HubProperty[%v,Payload=%x]", e.Name, e.Payload)
  case KindCameraIdle:
    return "CameraIdle"
  default:
    return fmt.Sprintf("Unknown[Raw=%x]", e.Raw)
  }
}
