package session

import (
  "reflect"

  "github.com/brickbt/go-mario-driver/protocol"
  "github.com/rs/zerolog/log"
)

// Hook receives the session (non-owning) and the event that fired. Hooks run
// synchronously on the frame-processing goroutine, in registration order.
type Hook func(s *Session, e protocol.Event)

// LogHook receives every lifecycle message the session emits.
type LogHook func(s *Session, msg string)

// Register appends one or more hooks to the registry for the given event
// kind. Duplicate registrations are kept and invoked once per registration.
func (s *Session) Register(kind protocol.Kind, hooks ...Hook) {
  s.mu.Lock()
  defer s.mu.Unlock()

  s.hooks[kind] = append(s.hooks[kind], hooks...)
}

// Unregister removes the hook from every kind's registry it appears in.
// Removing a hook that was never registered is a no-op.
func (s *Session) Unregister(hook Hook) {
  target := reflect.ValueOf(hook).Pointer()

  s.mu.Lock()
  defer s.mu.Unlock()

  for kind, registered := range s.hooks {
    kept := registered[:0]

    for _, h := range registered {
      if reflect.ValueOf(h).Pointer() != target {
        kept = append(kept, h)
      }
    }

    s.hooks[kind] = kept
  }
}

func (s *Session) RegisterLogHook(hooks ...LogHook) {
  s.mu.Lock()
  defer s.mu.Unlock()

  s.logHooks = append(s.logHooks, hooks...)
}

// dispatch updates the session's cached values and then fans the event out to
// the registered hooks. The cache update always precedes the first hook call,
// so hooks observe a session that already reflects the event.
func (s *Session) dispatch(e protocol.Event) {
  s.mu.Lock()

  switch e.Kind {
  case protocol.KindTile:
    s.recentTile = e.Name
    s.ground = e.Name
  case protocol.KindGroundColor:
    s.ground = e.Name
  case protocol.KindAcceleration:
    s.acceleration = [3]int8{e.X, e.Y, e.Z}
  case protocol.KindPants:
    s.pants = e.Name
  }

  hooks := append([]Hook(nil), s.hooks[e.Kind]...)
  s.mu.Unlock()

  if e.Kind == protocol.KindCameraIdle {
    // transient idle signal between camera readings; never fanned out.
    log.Trace().Hex("Frame", e.Raw).Msg("session: camera idle")
    return
  }

  for _, hook := range hooks {
    s.invoke(hook, e)
  }
}

// invoke isolates a single hook call: a panicking hook is reported and does
// not prevent later hooks from running.
func (s *Session) invoke(hook Hook, e protocol.Event) {
  defer func() {
    if r := recover(); r != nil {
      hookPanicsCounter.Inc()

      log.Error().
        Interface("Panic", r).
        Stringer("Event", e).
        Msg("session: event hook panicked")
    }
  }()

  hooksDispatchedCounter.Inc()
  hook(s, e)
}
