package messagerooms

// ConnectionState represents the current state of the event stream.
type ConnectionState int

const (
	// StateDisconnected means Connect has not been called yet.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the handshake is in flight.
	StateConnecting

	// StateConnected means the stream is open and events are being dispatched.
	StateConnected

	// StateError means the handshake failed or the stream broke.
	StateError

	// StateClosed means the stream ended, either by Close or by the server.
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateEvent represents a state change event.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error // Optional error that caused the state change
}
