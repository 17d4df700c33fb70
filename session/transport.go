package session

import (
	"context"
	"fmt"
)

// Candidate is one device seen during a scan.
type Candidate struct {
	Addr string
	Name string
}

func (c Candidate) String() string {
	return fmt.Sprintf("%v (%v)", c.Name, c.Addr)
}

// Transport is the radio link the session drives. Implementations live
// outside this package (see the ble package); tests supply fakes.
type Transport interface {
	// Scan runs one discovery cycle and returns every candidate seen.
	Scan(ctx context.Context) ([]Candidate, error)
	Connect(ctx context.Context, addr string) (Conn, error)
}

// Conn is one established device connection. The session holds at most one
// live Conn at a time and tears it down before ever replacing it.
type Conn interface {
	// Subscribe registers the handler for notification frames. Frames are
	// delivered from the transport's goroutine; the session serializes them.
	Subscribe(ctx context.Context, handler func(frame []byte)) error
	Write(ctx context.Context, payload []byte) error
	// Connected reports transport-level liveness.
	Connected() bool
	Disconnect() error
}
