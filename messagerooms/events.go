package messagerooms

import "github.com/vovakirdan/messagerooms-sdk/messagerooms/model"

// ConnectionEvent is the data of a ClientConnection event.
type ConnectionEvent struct {
	ConnectionID string `json:"connection_id"`
	ServerTime   int64  `json:"server_time,omitempty"`
}

// MessageEvent is the data of a MessageEvent event.
type MessageEvent struct {
	Topic   string              `json:"topic"`
	Payload MessageEventPayload `json:"payload"`
}

// MessageEventPayload is the new-message notification body.
type MessageEventPayload struct {
	Message model.Message `json:"message"`
	Room    model.Room    `json:"room"`
}
