package ble

import (
  "context"
  "errors"
  "fmt"

  "github.com/go-ble/ble"
  "github.com/rs/zerolog/log"

  "github.com/brickbt/go-mario-driver/session"
)

func WrapContextWithSigHandler(ctx context.Context, cancel func()) context.Context {
  return ble.WithSigHandler(ctx, cancel)
}

// Scan runs one bounded discovery cycle and returns every named device seen,
// deduplicated by address. Implements session.Transport.
func (h *Handle) Scan(parentCtx context.Context) ([]session.Candidate, error) {
  ctx, cancel := context.WithTimeout(parentCtx, h.ScanWindow)
  defer cancel()

  seen := make(map[string]session.Candidate)

  err := h.dev.Scan(ctx, false, func(a Advertisement) {
    addr := a.Addr().String()

    if _, ok := seen[addr]; ok {
      return
    }

    log.Trace().
      Str("Addr", addr).
      Str("Name", a.LocalName()).
      Bool("Connectable", a.Connectable()).
      Msg("ble: received advertisement")

    if a.LocalName() == "" || !a.Connectable() {
      return
    }

    seen[addr] = session.Candidate{
      Addr: addr,
      Name: a.LocalName(),
    }
  })

  // the window elapsing is the normal way a cycle ends.
  if err != nil &&
     !errors.Is(err, context.Canceled) &&
     !errors.Is(err, context.DeadlineExceeded) {
    return nil, fmt.Errorf("failed to scan: %w", err)
  }

  candidates := make([]session.Candidate, 0, len(seen))

  for _, c := range seen {
    candidates = append(candidates, c)
  }

  return candidates, nil
}

// ScanAll performs a discovery cycle, passing every raw advertisement to the
// callback. Used by the discovery mode.
func (h *Handle) ScanAll(ctx context.Context, onDevice func(Advertisement)) error {
  err := h.dev.Scan(ctx, true, onDevice)

  if err != nil {
    return fmt.Errorf("failed to initiate scan: %w", err)
  }

  return nil
}
