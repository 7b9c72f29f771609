// Package stream implements the transports that carry server-push events:
// Server-Sent Events over HTTP and a WebSocket variant using the same
// type/data envelope.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Event is one named server-push event.
type Event struct {
	ID    string
	Type  string
	Data  []byte
	Retry time.Duration
}

// Stream yields events in the order the server sent them.
type Stream interface {
	// Next blocks until the next event arrives. It returns io.EOF when the
	// server ends the stream and a *FrameError for a frame that could not be
	// decoded, after which reading may continue.
	Next(ctx context.Context) (Event, error)
	Close() error
}

// ErrIdleTimeout is returned by Next when nothing was received for longer
// than the configured read timeout.
var ErrIdleTimeout = errors.New("stream idle timeout")

// FrameError reports a single frame that could not be decoded. The stream
// is still open and Next may be called again.
type FrameError struct {
	// Type is the event type when the envelope got that far.
	Type string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("malformed %s frame: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("malformed frame: %v", e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// HandshakeError reports a rejected handshake.
type HandshakeError struct {
	StatusCode int
	Body       string
}

func (e *HandshakeError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("handshake rejected (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("handshake rejected (status %d)", e.StatusCode)
}
