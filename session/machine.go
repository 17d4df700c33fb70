package session

import (
  "context"
  "errors"
  "strings"
  "time"

  "github.com/brickbt/go-mario-driver/protocol"
  "github.com/brickbt/go-mario-driver/utils"
  "github.com/rs/zerolog/log"
)

// ErrRetriesExhausted is returned by Run when the scan retry bound is hit
// without ever finding the device.
var ErrRetriesExhausted = errors.New("device not found within the scan retry bound")

// Run drives the session until it reaches the terminal Stopped state or the
// context is canceled. It is the single writer of the session's state and of
// the connection handle; it must be called exactly once.
func (s *Session) Run(ctx context.Context) error {
  s.setState(StateSearching)

  for {
    switch s.State() {
    case StateSearching:
      next, err := s.search(ctx)
      s.setState(next)

      if err != nil {
        s.logEvent("Stopped after exhausting scan retries")
        return err
      }
    case StateConnecting:
      s.setState(s.establish(ctx))
    case StateConnected:
      s.setState(s.serve(ctx))
    case StateDisconnecting:
      s.setState(s.teardown(ctx))
    case StateStopped:
      s.logEvent("Session stopped")
      return nil
    default:
      panic("session: Run reached state " + s.State().String())
    }
  }
}

// search runs scan cycles until a matching candidate shows up, incrementing
// the retry counter after every cycle that comes up empty.
func (s *Session) search(ctx context.Context) (State, error) {
  for {
    if ctx.Err() != nil || s.stopping() {
      return StateStopped, nil
    }

    if s.Retries() > s.opts.MaxScanRetries {
      return StateStopped, ErrRetriesExhausted
    }

    s.logEvent("Searching for device...")

    candidates, err := s.transport.Scan(ctx)

    // every scan cycle counts against the bound; the counter resets only on
    // a fully established connection.
    s.mu.Lock()
    s.retryCount += 1
    s.mu.Unlock()

    if err != nil {
      if utils.ErrorIsAnyOf(err, context.Canceled, context.DeadlineExceeded) {
        return StateStopped, nil
      }

      log.Warn().Err(err).Msg("session: scan cycle failed")
    }

    log.Trace().
      Array("Candidates", utils.ToZeroLogArray(candidates)).
      Msg("session: scan cycle finished")

    for _, c := range candidates {
      if s.matchesName(c.Name) {
        s.mu.Lock()
        s.candidate = c
        s.mu.Unlock()

        log.Info().Stringer("Candidate", c).Msg("session: found device")
        return StateConnecting, nil
      }
    }
  }
}

func (s *Session) matchesName(name string) bool {
  name = strings.ToLower(name)

  for _, prefix := range s.opts.NamePrefixes {
    if strings.HasPrefix(name, strings.ToLower(prefix)) {
      return true
    }
  }

  return false
}

// establish connects to the found candidate and runs the subscribe sequence.
// Any failure tears the handle down again and counts as a connection failure.
func (s *Session) establish(ctx context.Context) State {
  candidate := s.Device()

  conn, err := s.transport.Connect(ctx, candidate.Addr)

  if err != nil {
    log.Error().Err(err).Stringer("Candidate", candidate).Msg("session: connect failed")
    return s.afterTeardown(ctx)
  }

  lc := &liveConn{
    Conn: conn,
    frames: make(chan []byte, 64),
    done: make(chan struct{}),
  }

  s.setConn(lc)

  if err := s.subscribeAll(ctx, lc); err != nil {
    log.Error().Err(err).Msg("session: subscribe sequence failed, tearing down")

    s.takeConn()
    close(lc.done)

    if err := conn.Disconnect(); err != nil {
      log.Debug().Err(err).Msg("session: teardown after failed connect also failed")
    }

    return s.afterTeardown(ctx)
  }

  s.mu.Lock()
  s.retryCount = 0
  s.mu.Unlock()

  s.logEvent("Connected: " + candidate.Addr)
  return StateConnected
}

func (s *Session) subscribeAll(ctx context.Context, lc *liveConn) error {
  if err := lc.Subscribe(ctx, func(frame []byte) { s.enqueueFrame(lc, frame) }); err != nil {
    return err
  }

  // the device drops subscribe writes that arrive back to back, so pace them.
  subscriptions := [][]byte{
    protocol.SubscribeIMU(),
    protocol.SubscribeRGB(),
    protocol.SubscribePants(),
  }

  for _, cmd := range subscriptions {
    if err := s.pace(ctx); err != nil {
      return err
    }

    if err := lc.Write(ctx, cmd); err != nil {
      return err
    }
  }

  if s.opts.SetDefaultVolume {
    if err := lc.Write(ctx, protocol.SetVolume(s.opts.DefaultVolume)); err != nil {
      return err
    }
  }

  return nil
}

func (s *Session) pace(ctx context.Context) error {
  select {
  case <-ctx.Done():
    return ctx.Err()
  case <-time.After(s.opts.SubscribePacing):
    return nil
  }
}

// enqueueFrame runs on the transport's notification goroutine. Frames are
// copied and handed to the Run loop, which processes them strictly in order.
func (s *Session) enqueueFrame(lc *liveConn, frame []byte) {
  cp := make([]byte, len(frame))
  copy(cp, frame)

  select {
  case lc.frames <- cp:
  case <-lc.done:
  }
}

// serve is the Connected phase: drain frames sequentially and watch liveness
// until something routes us to Disconnecting.
func (s *Session) serve(ctx context.Context) State {
  lc := s.currentConn()

  if lc == nil {
    // facade-triggered disconnect raced the transition
    return StateDisconnecting
  }

  ticker := time.NewTicker(s.opts.LivenessInterval)
  defer ticker.Stop()

  for {
    select {
    case <-ctx.Done():
      return StateDisconnecting
    case <-s.disconnectCh:
      return StateDisconnecting
    case frame := <-lc.frames:
      if s.processFrame(frame) {
        return StateDisconnecting
      }
    case <-ticker.C:
      if !lc.Connected() {
        s.logEvent("Disconnect detected during connection check")
        return StateDisconnecting
      }
    }
  }
}

// processFrame decodes and dispatches one frame. Returns true when the device
// announced it is about to drop the connection.
func (s *Session) processFrame(frame []byte) bool {
  e, err := protocol.Decode(frame)

  if err != nil {
    framesMalformedCounter.Inc()
    log.Error().Err(err).Hex("Frame", frame).Msg("session: dropping malformed frame")
    return false
  }

  framesDecodedCounter.WithLabelValues(e.Kind.String()).Inc()

  log.Trace().Stringer("Event", e).Hex("Frame", frame).Msg("session: decoded frame")

  s.dispatch(e)

  return e.Kind == protocol.KindHubAction && e.Code == protocol.HubActionWillDisconnect
}

// teardown releases the handle after a best-effort disconnect command, then
// either goes back to searching or stops for good.
func (s *Session) teardown(ctx context.Context) State {
  lc := s.takeConn()

  if lc != nil {
    s.logEvent("Disconnecting...")

    close(lc.done)

    if err := lc.Write(ctx, protocol.Disconnect()); err != nil {
      log.Debug().Err(err).Msg("session: disconnect command write failed")
    }

    if err := lc.Disconnect(); err != nil {
      log.Debug().Err(err).Msg("session: transport disconnect failed")
    }

    disconnectsCounter.Inc()
  }

  // clear a stale disconnect request so it cannot kill the next connection.
  select {
  case <-s.disconnectCh:
  default:
  }

  return s.afterTeardown(ctx)
}

func (s *Session) afterTeardown(ctx context.Context) State {
  if ctx.Err() != nil || !s.shouldReconnect() {
    return StateStopped
  }

  reconnectsCounter.Inc()
  return StateSearching
}
