package session

import "strconv"

// State is the session lifecycle phase. Transitions are owned exclusively by
// the Run loop.
type State uint8

const (
  StateIdle State = iota
  StateSearching
  StateConnecting
  StateConnected
  StateDisconnecting
  StateStopped
)

func (s State) String() string {
  switch s {
  case StateIdle:
    return "Idle"
  case StateSearching:
    return "Searching"
  case StateConnecting:
    return "Connecting"
  case StateConnected:
    return "Connected"
  case StateDisconnecting:
    return "Disconnecting"
  case StateStopped:
    return "Stopped"
  default:
    panic("unknown State value: " + strconv.Itoa(int(s)))
  }
}
