package session

import (
  "context"
  "errors"
  "reflect"
  "sync"
  "testing"
  "time"

  "github.com/brickbt/go-mario-driver/protocol"
)

type fakeConn struct {
  mu sync.Mutex
  writes [][]byte
  handler func([]byte)
  alive bool
  closed bool
  writeErr error
}

func newFakeConn() *fakeConn {
  return &fakeConn{alive: true}
}

func (c *fakeConn) Subscribe(_ context.Context, handler func(frame []byte)) error {
  c.mu.Lock()
  defer c.mu.Unlock()

  c.handler = handler
  return nil
}

func (c *fakeConn) Write(_ context.Context, payload []byte) error {
  c.mu.Lock()
  defer c.mu.Unlock()

  if c.writeErr != nil {
    return c.writeErr
  }

  cp := make([]byte, len(payload))
  copy(cp, payload)
  c.writes = append(c.writes, cp)
  return nil
}

func (c *fakeConn) Connected() bool {
  c.mu.Lock()
  defer c.mu.Unlock()

  return c.alive
}

func (c *fakeConn) Disconnect() error {
  c.mu.Lock()
  defer c.mu.Unlock()

  c.alive = false
  c.closed = true
  return nil
}

func (c *fakeConn) drop() {
  c.mu.Lock()
  defer c.mu.Unlock()

  c.alive = false
}

func (c *fakeConn) notify(frame []byte) {
  c.mu.Lock()
  handler := c.handler
  c.mu.Unlock()

  handler(frame)
}

func (c *fakeConn) writtenCommands() [][]byte {
  c.mu.Lock()
  defer c.mu.Unlock()

  out := make([][]byte, len(c.writes))
  copy(out, c.writes)
  return out
}

type fakeTransport struct {
  mu sync.Mutex
  scans int
  connects int
  candidates []Candidate
  scanErr error
  conns []*fakeConn
  connectErr error
}

func (t *fakeTransport) Scan(_ context.Context) ([]Candidate, error) {
  t.mu.Lock()
  defer t.mu.Unlock()

  t.scans += 1
  return t.candidates, t.scanErr
}

func (t *fakeTransport) Connect(_ context.Context, _ string) (Conn, error) {
  t.mu.Lock()
  defer t.mu.Unlock()

  if t.connectErr != nil {
    return nil, t.connectErr
  }

  if t.connects >= len(t.conns) {
    return nil, errors.New("fakeTransport: out of connections")
  }

  conn := t.conns[t.connects]
  t.connects += 1
  return conn, nil
}

func (t *fakeTransport) scanCount() int {
  t.mu.Lock()
  defer t.mu.Unlock()

  return t.scans
}

// test options keep the pacing and liveness delays tiny.
func fastOptions() Options {
  return Options{
    SubscribePacing: time.Nanosecond,
    LivenessInterval: 5 * time.Millisecond,
  }
}

func waitFor(t *testing.T, what string, cond func() bool) {
  t.Helper()

  deadline := time.Now().Add(2 * time.Second)

  for time.Now().Before(deadline) {
    if cond() {
      return
    }

    time.Sleep(time.Millisecond)
  }

  t.Fatalf("timed out waiting for %v", what)
}

func TestRetryBound(t *testing.T) {
  transport := &fakeTransport{} // scans never find anything

  opts := fastOptions()
  opts.AutoReconnect = true

  s := New(transport, opts)

  err := s.Run(context.Background())

  if !errors.Is(err, ErrRetriesExhausted) {
    t.Fatalf("Run: got %v, wanted ErrRetriesExhausted", err)
  }

  if s.State() != StateStopped {
    t.Fatalf("session ended in state %v, wanted Stopped", s.State())
  }

  // four consecutive failed cycles, never a fifth
  if got := transport.scanCount(); got != 4 {
    t.Fatalf("transport saw %d scan cycles, wanted 4", got)
  }
}

func TestScanErrorCountsAsFailedCycle(t *testing.T) {
  transport := &fakeTransport{scanErr: errors.New("radio busy")}

  s := New(transport, fastOptions())

  err := s.Run(context.Background())

  if !errors.Is(err, ErrRetriesExhausted) {
    t.Fatalf("Run: got %v, wanted ErrRetriesExhausted", err)
  }

  if got := transport.scanCount(); got != 4 {
    t.Fatalf("transport saw %d scan cycles, wanted 4", got)
  }
}

func TestNonMatchingCandidatesAreIgnored(t *testing.T) {
  transport := &fakeTransport{
    candidates: []Candidate{
      {Addr: "11:22", Name: "Some Thermometer"},
      {Addr: "33:44", Name: "legofan-laptop"},
    },
  }

  s := New(transport, fastOptions())

  if err := s.Run(context.Background()); !errors.Is(err, ErrRetriesExhausted) {
    t.Fatalf("Run: got %v, wanted ErrRetriesExhausted", err)
  }

  if transport.connects != 0 {
    t.Fatalf("transport saw %d connects, wanted none", transport.connects)
  }
}

func TestConnectFlow(t *testing.T) {
  conn := newFakeConn()

  transport := &fakeTransport{
    candidates: []Candidate{
      {Addr: "00:11:22:33:44:55", Name: "LEGO Mario_j_r"},
    },
    conns: []*fakeConn{conn},
  }

  opts := fastOptions()
  opts.DefaultVolume = 30
  opts.SetDefaultVolume = true

  s := New(transport, opts)

  done := make(chan error, 1)
  go func() { done <- s.Run(context.Background()) }()

  waitFor(t, "session to connect", func() bool { return s.State() == StateConnected })

  if got := s.Retries(); got != 0 {
    t.Fatalf("retry counter is %d after connecting, wanted 0", got)
  }

  want := [][]byte{
    protocol.SubscribeIMU(),
    protocol.SubscribeRGB(),
    protocol.SubscribePants(),
    protocol.SetVolume(30),
  }

  if got := conn.writtenCommands(); !reflect.DeepEqual(got, want) {
    t.Fatalf("connection setup wrote %x, wanted %x", got, want)
  }

  s.Stop()

  if err := <-done; err != nil {
    t.Fatalf("Run returned error: %v", err)
  }

  if !conn.closed {
    t.Fatal("transport connection was not released on stop")
  }

  // the disconnect command went out best-effort before the teardown
  if got := conn.writtenCommands(); !reflect.DeepEqual(got[len(got)-1], protocol.Disconnect()) {
    t.Fatalf("last write was %x, wanted the disconnect command", got[len(got)-1])
  }
}

func TestFrameDeliveryUpdatesCacheBeforeHooks(t *testing.T) {
  conn := newFakeConn()

  transport := &fakeTransport{
    candidates: []Candidate{{Addr: "aa", Name: "lego luigi"}},
    conns: []*fakeConn{conn},
  }

  s := New(transport, fastOptions())

  type observation struct {
    event protocol.Event
    groundAtCall string
  }

  observed := make(chan observation, 1)

  s.Register(protocol.KindTile, func(s *Session, e protocol.Event) {
    observed <- observation{event: e, groundAtCall: s.Ground()}
  })

  done := make(chan error, 1)
  go func() { done <- s.Run(context.Background()) }()

  waitFor(t, "session to connect", func() bool { return s.State() == StateConnected })

  conn.notify([]byte{0x08, 0x00, 0x45, 0x01, 0x02, 0x00, 0x00, 0x00})

  got := <-observed

  if got.event.Name != "Goomba" || got.event.Code != 0x02 {
    t.Fatalf("hook observed %+v, wanted the Goomba tile", got.event)
  }

  if got.groundAtCall != "Goomba" {
    t.Fatalf("cached ground was %q when the hook ran, wanted %q", got.groundAtCall, "Goomba")
  }

  if s.RecentTile() != "Goomba" {
    t.Fatalf("recent tile is %q, wanted %q", s.RecentTile(), "Goomba")
  }

  s.Stop()
  <-done
}

func TestLivenessDropStopsWithoutAutoReconnect(t *testing.T) {
  conn := newFakeConn()

  transport := &fakeTransport{
    candidates: []Candidate{{Addr: "aa", Name: "LEGO MARIO"}},
    conns: []*fakeConn{conn},
  }

  s := New(transport, fastOptions()) // AutoReconnect false

  done := make(chan error, 1)
  go func() { done <- s.Run(context.Background()) }()

  waitFor(t, "session to connect", func() bool { return s.State() == StateConnected })

  conn.drop()

  if err := <-done; err != nil {
    t.Fatalf("Run returned error: %v", err)
  }

  if s.State() != StateStopped {
    t.Fatalf("session ended in state %v, wanted Stopped", s.State())
  }
}

func TestLivenessDropReconnects(t *testing.T) {
  first := newFakeConn()
  second := newFakeConn()

  transport := &fakeTransport{
    candidates: []Candidate{{Addr: "aa", Name: "LEGO Mario"}},
    conns: []*fakeConn{first, second},
  }

  opts := fastOptions()
  opts.AutoReconnect = true

  s := New(transport, opts)

  done := make(chan error, 1)
  go func() { done <- s.Run(context.Background()) }()

  waitFor(t, "first connection", func() bool { return s.State() == StateConnected })

  first.drop()

  waitFor(t, "reconnection", func() bool {
    transport.mu.Lock()
    defer transport.mu.Unlock()
    return transport.connects == 2
  })

  waitFor(t, "second connection to settle", func() bool { return s.State() == StateConnected })

  s.Stop()
  <-done
}

func TestDeviceAnnouncedDisconnect(t *testing.T) {
  conn := newFakeConn()

  transport := &fakeTransport{
    candidates: []Candidate{{Addr: "aa", Name: "lego mario"}},
    conns: []*fakeConn{conn},
  }

  s := New(transport, fastOptions())

  done := make(chan error, 1)
  go func() { done <- s.Run(context.Background()) }()

  waitFor(t, "session to connect", func() bool { return s.State() == StateConnected })

  // hub action 0x31: the device is about to drop the connection
  conn.notify([]byte{0x04, 0x00, 0x02, 0x31, 0x00, 0x00})

  if err := <-done; err != nil {
    t.Fatalf("Run returned error: %v", err)
  }

  if !conn.closed {
    t.Fatal("connection was not torn down after the device announced a disconnect")
  }
}

func TestMalformedFrameDoesNotReachHooks(t *testing.T) {
  conn := newFakeConn()

  transport := &fakeTransport{
    candidates: []Candidate{{Addr: "aa", Name: "lego mario"}},
    conns: []*fakeConn{conn},
  }

  s := New(transport, fastOptions())

  hookCalls := make(chan protocol.Event, 8)

  for _, kind := range []protocol.Kind{protocol.KindTile, protocol.KindUnknown} {
    s.Register(kind, func(s *Session, e protocol.Event) { hookCalls <- e })
  }

  done := make(chan error, 1)
  go func() { done <- s.Run(context.Background()) }()

  waitFor(t, "session to connect", func() bool { return s.State() == StateConnected })

  conn.notify([]byte{0x01, 0x02}) // too short to decode
  conn.notify([]byte{0x08, 0x00, 0x45, 0x01, 0x02, 0x00, 0x00, 0x00})

  got := <-hookCalls

  if got.Kind != protocol.KindTile {
    t.Fatalf("first hook call was %v, wanted the tile following the bad frame", got.Kind)
  }

  select {
  case e := <-hookCalls:
    t.Fatalf("unexpected extra hook call: %v", e)
  default:
  }

  s.Stop()
  <-done
}

func TestConnectFailureRetriesWhileAutoReconnect(t *testing.T) {
  conn := newFakeConn()

  transport := &fakeTransport{
    candidates: []Candidate{{Addr: "aa", Name: "lego mario"}},
    connectErr: errors.New("link layer says no"),
  }

  opts := fastOptions()
  opts.AutoReconnect = true
  opts.MaxScanRetries = 100 // keep the bound out of this test's way

  s := New(transport, opts)

  done := make(chan error, 1)
  go func() { done <- s.Run(context.Background()) }()

  // let it fail a couple of times, then allow the connect through
  waitFor(t, "repeated connect attempts", func() bool {
    transport.mu.Lock()
    defer transport.mu.Unlock()
    return transport.scans >= 2
  })

  transport.mu.Lock()
  transport.connectErr = nil
  transport.conns = []*fakeConn{conn}
  transport.mu.Unlock()

  waitFor(t, "session to connect", func() bool { return s.State() == StateConnected })

  s.Stop()
  <-done
}
