package session

import (
  "sync"
  "time"

  "github.com/brickbt/go-mario-driver/protocol"
  "github.com/rs/zerolog/log"
)

const (
  DefaultMaxScanRetries = 3
  DefaultSubscribePacing = 100 * time.Millisecond
  DefaultLivenessInterval = 3 * time.Second
)

// DefaultNamePrefixes are the advertised name prefixes the device class uses,
// matched case-insensitively.
var DefaultNamePrefixes = []string{"lego mario", "lego luigi"}

type Options struct {
  // Advertised name prefixes to accept while searching. Defaults to
  // DefaultNamePrefixes.
  NamePrefixes []string

  // Consecutive failed scan cycles tolerated before the session gives up.
  // The session stops once the retry counter exceeds this bound.
  MaxScanRetries int

  // Pause before each subscribe write, respecting the device's intake rate.
  SubscribePacing time.Duration

  // How often transport-level liveness is polled while connected.
  LivenessInterval time.Duration

  // Volume (0-100, clamped) applied on every successful connection. Only
  // written when SetDefaultVolume is true; zero alone leaves the device
  // volume untouched so the zero Options value stays safe.
  DefaultVolume int
  SetDefaultVolume bool

  // Reconnect after a drop instead of stopping.
  AutoReconnect bool
}

// Session owns the lifecycle of one device connection plus the most recent
// sensor values it reported. All state transitions happen on the Run loop;
// cached values and the connection handle are guarded for readers on other
// goroutines (hooks, metrics, the command facade).
type Session struct {
  transport Transport
  opts Options

  mu sync.Mutex
  state State
  conn *liveConn
  candidate Candidate
  retryCount int
  autoReconnect bool
  stopRequested bool

  ground string
  pants string
  recentTile string
  acceleration [3]int8

  hooks map[protocol.Kind][]Hook
  logHooks []LogHook

  disconnectCh chan struct{}
}

// liveConn pairs a transport connection with its frame queue. The done
// channel is closed when the session abandons the connection, releasing any
// transport callback still trying to enqueue.
type liveConn struct {
  Conn
  frames chan []byte
  done chan struct{}
}

func New(transport Transport, opts Options) *Session {
  if len(opts.NamePrefixes) == 0 {
    opts.NamePrefixes = DefaultNamePrefixes
  }

  if opts.MaxScanRetries == 0 {
    opts.MaxScanRetries = DefaultMaxScanRetries
  }

  if opts.SubscribePacing == 0 {
    opts.SubscribePacing = DefaultSubscribePacing
  }

  if opts.LivenessInterval == 0 {
    opts.LivenessInterval = DefaultLivenessInterval
  }

  return &Session{
    transport: transport,
    opts: opts,
    state: StateIdle,
    autoReconnect: opts.AutoReconnect,
    hooks: make(map[protocol.Kind][]Hook),
    disconnectCh: make(chan struct{}, 1),
  }
}

func (s *Session) State() State {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.state
}

func (s *Session) setState(next State) {
  s.mu.Lock()
  prev := s.state
  s.state = next
  s.mu.Unlock()

  if prev != next {
    log.Debug().
      Stringer("From", prev).
      Stringer("To", next).
      Msg("session: state transition")
  }
}

// Ground is the most recent tile or ground color seen by the camera.
func (s *Session) Ground() string {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.ground
}

// RecentTile is the most recent barcode tile, ignoring plain ground colors.
func (s *Session) RecentTile() string {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.recentTile
}

func (s *Session) Pants() string {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.pants
}

func (s *Session) Acceleration() (x, y, z int8) {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.acceleration[0], s.acceleration[1], s.acceleration[2]
}

func (s *Session) Retries() int {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.retryCount
}

// Device is the candidate the session last connected (or is connecting) to.
func (s *Session) Device() Candidate {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.candidate
}

func (s *Session) currentConn() *liveConn {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.conn
}

func (s *Session) setConn(c *liveConn) {
  s.mu.Lock()
  defer s.mu.Unlock()

  if s.conn != nil && c != nil {
    panic("session: attempted to replace a live connection handle")
  }

  s.conn = c
}

// takeConn clears and returns the live handle so it can be torn down exactly
// once.
func (s *Session) takeConn() *liveConn {
  s.mu.Lock()
  defer s.mu.Unlock()

  c := s.conn
  s.conn = nil
  return c
}

func (s *Session) shouldReconnect() bool {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.autoReconnect && !s.stopRequested
}

func (s *Session) stopping() bool {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.stopRequested
}

// Stop disables auto-reconnect and winds the session down. One-way: a stopped
// session never resumes transport activity.
func (s *Session) Stop() {
  s.mu.Lock()
  s.autoReconnect = false
  s.stopRequested = true
  s.mu.Unlock()

  s.requestDisconnect()
}

// Disconnect drops the current connection. The session reconnects afterwards
// if auto-reconnect is enabled.
func (s *Session) Disconnect() {
  s.requestDisconnect()
}

func (s *Session) requestDisconnect() {
  select {
  case s.disconnectCh <- struct{}{}:
  default:
  }
}

// logEvent mirrors a lifecycle message to the registered log hooks in
// addition to the structured log.
func (s *Session) logEvent(msg string) {
  s.mu.Lock()
  hooks := append([]LogHook(nil), s.logHooks...)
  device := s.candidate
  s.mu.Unlock()

  for _, hook := range hooks {
    hook(s, msg)
  }

  log.Info().Stringer("Device", device).Msg(msg)
}
