package messagerooms

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

const (
	// EventClientConnection carries the id the server assigned to this stream.
	EventClientConnection = "ClientConnection"
	// EventHeartbeat is a liveness signal.
	EventHeartbeat = "Heartbeat"
	// EventMessage wraps a pub/sub notification for one of the user's topics.
	EventMessage = "MessageEvent"
)

// Personal topics are published as "<topic>:<userID>".
const (
	TopicNewMessage = "NewMessage"
	TopicNewRoom    = "NewRoom"
)

// Event is one named event received from the server.
type Event struct {
	ID   string
	Type string
	Data []byte
	// Retry is the reconnection delay the server suggested with this event,
	// zero when it sent none.
	Retry time.Duration
}

// Decode unmarshals the event data into v. Failures are reported as
// malformed event errors.
func (e Event) Decode(v any) error {
	data := bytes.TrimSpace(e.Data)
	if len(data) == 0 {
		return MalformedEventError(e.Type, errors.New("empty data"))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return MalformedEventError(e.Type, err)
	}
	return nil
}
