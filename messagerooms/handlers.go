package messagerooms

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/store"
)

// ConnectionHandler stores the connection id announced by the server.
type ConnectionHandler struct{}

func (ConnectionHandler) EventType() string { return EventClientConnection }

func (ConnectionHandler) Handle(ev Event, st *store.Store) error {
	var data ConnectionEvent
	if err := ev.Decode(&data); err != nil {
		return err
	}
	if data.ConnectionID == "" {
		return MalformedEventError(ev.Type, errors.New("missing connection_id"))
	}
	st.StoreEventsourceConnection(data.ConnectionID)
	return nil
}

// HeartbeatHandler checks that heartbeats carry JSON and otherwise leaves
// the store alone.
type HeartbeatHandler struct{}

func (HeartbeatHandler) EventType() string { return EventHeartbeat }

func (HeartbeatHandler) Handle(ev Event, _ *store.Store) error {
	var data json.RawMessage
	return ev.Decode(&data)
}

// MessageHandler appends new messages for the selected room.
type MessageHandler struct{}

func (MessageHandler) EventType() string { return EventMessage }

func (MessageHandler) Handle(ev Event, st *store.Store) error {
	var data MessageEvent
	if err := ev.Decode(&data); err != nil {
		return err
	}
	if !strings.HasPrefix(data.Topic, TopicNewMessage) {
		return nil
	}
	selected, ok := st.SelectedRoom()
	if !ok || string(data.Payload.Room.ID) != selected {
		return nil
	}
	st.AppendMessage(data.Payload.Message)
	return nil
}
