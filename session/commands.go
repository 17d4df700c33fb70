package session

import (
  "context"

  "github.com/brickbt/go-mario-driver/protocol"
  "github.com/rs/zerolog/log"
)

// Command facade. Every operation validates its arguments before touching the
// transport and degrades to a logged no-op when no connection is live. Write
// failures are recovered locally by routing the session to Disconnecting and
// are never surfaced to hook code.

// RequestPortValue asks the device to report the current value of the given
// port. The answer arrives as a regular notification frame. The write is
// awaited so callers can order it relative to a following disconnect.
func (s *Session) RequestPortValue(ctx context.Context, port byte) error {
  cmd, err := protocol.RequestPortValue(port)

  if err != nil {
    return err
  }

  conn := s.currentConn()

  if conn == nil {
    log.Info().Uint8("Port", port).Msg("session: not connected, ignoring port value request")
    return nil
  }

  if err := conn.Write(ctx, cmd); err != nil {
    s.writeFailed("requesting port value", err)
  }

  return nil
}

// SetVolume schedules a volume change (clamped to 0-100) without waiting for
// the write to complete.
func (s *Session) SetVolume(volume int) {
  cmd := protocol.SetVolume(volume)

  conn := s.currentConn()

  if conn == nil {
    log.Info().Int("Volume", volume).Msg("session: not connected, ignoring volume change")
    return
  }

  go func() {
    if err := conn.Write(context.Background(), cmd); err != nil {
      s.writeFailed("setting volume", err)
    }
  }()
}

// ConfigurePort schedules a port input format setup without waiting for the
// write to complete.
func (s *Session) ConfigurePort(port, mode byte, notifications bool) error {
  cmd, err := protocol.ConfigurePort(port, mode, notifications)

  if err != nil {
    return err
  }

  conn := s.currentConn()

  if conn == nil {
    log.Info().
      Uint8("Port", port).
      Uint8("Mode", mode).
      Msg("session: not connected, ignoring port setup")
    return nil
  }

  go func() {
    if err := conn.Write(context.Background(), cmd); err != nil {
      s.writeFailed("setting up port", err)
    }
  }()

  return nil
}

// PowerOff switches the device off and winds the session down. The write is
// awaited before the disconnect is scheduled.
func (s *Session) PowerOff(ctx context.Context) error {
  conn := s.currentConn()

  if conn == nil {
    log.Info().Msg("session: not connected, ignoring power off")
    return nil
  }

  s.logEvent("Turning off...")

  if err := conn.Write(ctx, protocol.PowerOff()); err != nil {
    s.writeFailed("turning off", err)
    return nil
  }

  s.requestDisconnect()
  return nil
}

func (s *Session) writeFailed(what string, err error) {
  log.Error().Err(err).Msgf("session: connection error while %v", what)

  s.requestDisconnect()
}
