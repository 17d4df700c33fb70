package session

import (
  "testing"

  "github.com/brickbt/go-mario-driver/protocol"
)

func newTestSession() *Session {
  return New(&fakeTransport{}, fastOptions())
}

func tileEvent(code byte, name string) protocol.Event {
  return protocol.Event{Kind: protocol.KindTile, Code: code, Name: name}
}

func TestHookOrdering(t *testing.T) {
  s := newTestSession()

  var calls []string

  s.Register(protocol.KindTile, func(s *Session, e protocol.Event) {
    calls = append(calls, "A")
  })
  s.Register(protocol.KindTile, func(s *Session, e protocol.Event) {
    calls = append(calls, "B")
  })

  s.dispatch(tileEvent(0x02, "Goomba"))

  if len(calls) != 2 || calls[0] != "A" || calls[1] != "B" {
    t.Fatalf("hooks ran as %v, wanted [A B]", calls)
  }
}

func TestRegisterManyAtOnce(t *testing.T) {
  s := newTestSession()

  var calls []string

  s.Register(protocol.KindPants,
    func(s *Session, e protocol.Event) { calls = append(calls, "first") },
    func(s *Session, e protocol.Event) { calls = append(calls, "second") },
  )

  s.dispatch(protocol.Event{Kind: protocol.KindPants, Name: "Fire"})

  if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
    t.Fatalf("hooks ran as %v, wanted [first second]", calls)
  }
}

func TestDuplicateRegistrationInvokedPerRegistration(t *testing.T) {
  s := newTestSession()

  calls := 0
  hook := func(s *Session, e protocol.Event) { calls += 1 }

  s.Register(protocol.KindTile, hook, hook)
  s.dispatch(tileEvent(0x02, "Goomba"))

  if calls != 2 {
    t.Fatalf("duplicate hook ran %d times, wanted 2", calls)
  }
}

func TestUnregisterRemovesFromEveryKind(t *testing.T) {
  s := newTestSession()

  calls := 0
  hook := func(s *Session, e protocol.Event) { calls += 1 }
  other := func(s *Session, e protocol.Event) { calls += 10 }

  s.Register(protocol.KindTile, hook)
  s.Register(protocol.KindPants, hook)
  s.Register(protocol.KindPants, other)

  s.Unregister(hook)

  s.dispatch(tileEvent(0x02, "Goomba"))
  s.dispatch(protocol.Event{Kind: protocol.KindPants, Name: "Fire"})

  if calls != 10 {
    t.Fatalf("got %d from hook calls, wanted only the remaining hook (10)", calls)
  }
}

func TestUnregisterUnknownHookIsNoOp(t *testing.T) {
  s := newTestSession()

  calls := 0

  s.Register(protocol.KindTile, func(s *Session, e protocol.Event) { calls += 1 })

  s.Unregister(func(s *Session, e protocol.Event) {})

  s.dispatch(tileEvent(0x02, "Goomba"))

  if calls != 1 {
    t.Fatalf("registered hook ran %d times after unrelated Unregister, wanted 1", calls)
  }
}

func TestPanickingHookDoesNotAbortDispatch(t *testing.T) {
  s := newTestSession()

  var calls []string

  s.Register(protocol.KindTile, func(s *Session, e protocol.Event) {
    calls = append(calls, "A")
    panic("hook A is broken")
  })
  s.Register(protocol.KindTile, func(s *Session, e protocol.Event) {
    calls = append(calls, "B")
  })

  s.dispatch(tileEvent(0x02, "Goomba"))

  if len(calls) != 2 || calls[1] != "B" {
    t.Fatalf("hooks ran as %v, wanted B to run after A panicked", calls)
  }
}

func TestDispatchUpdatesCaches(t *testing.T) {
  s := newTestSession()

  s.dispatch(tileEvent(0xb8, "Start"))
  s.dispatch(protocol.Event{Kind: protocol.KindGroundColor, Name: "Red", Code: 0x15})
  s.dispatch(protocol.Event{Kind: protocol.KindPants, Name: "Cat", Code: 0x11})
  s.dispatch(protocol.Event{Kind: protocol.KindAcceleration, X: 1, Y: -2, Z: 3})

  if s.Ground() != "Red" {
    t.Fatalf("ground is %q, wanted the most recent color %q", s.Ground(), "Red")
  }

  if s.RecentTile() != "Start" {
    t.Fatalf("recent tile is %q, wanted %q (colors must not overwrite it)", s.RecentTile(), "Start")
  }

  if s.Pants() != "Cat" {
    t.Fatalf("pants is %q, wanted %q", s.Pants(), "Cat")
  }

  x, y, z := s.Acceleration()

  if x != 1 || y != -2 || z != 3 {
    t.Fatalf("acceleration is (%d,%d,%d), wanted (1,-2,3)", x, y, z)
  }
}

func TestCameraIdleNeverReachesHooks(t *testing.T) {
  s := newTestSession()

  calls := 0

  s.Register(protocol.KindCameraIdle, func(s *Session, e protocol.Event) { calls += 1 })

  s.dispatch(protocol.Event{Kind: protocol.KindCameraIdle})

  if calls != 0 {
    t.Fatalf("camera idle reached a hook %d times, wanted none", calls)
  }
}

func TestLogHooksReceiveLifecycleMessages(t *testing.T) {
  s := newTestSession()

  var got []string

  s.RegisterLogHook(func(s *Session, msg string) { got = append(got, msg) })

  s.logEvent("Searching for device...")

  if len(got) != 1 || got[0] != "Searching for device..." {
    t.Fatalf("log hook saw %v", got)
  }
}
