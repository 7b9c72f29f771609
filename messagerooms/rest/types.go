package rest

import (
	"fmt"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/model"
)

// Authentication types

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// LoginResponse carries the authenticated user and the access token to send
// on every later request.
type LoginResponse struct {
	User        model.User `json:"user"`
	AccessToken string     `json:"access_token"`
}

// Room types

// CreateRoomRequest is the request body for creating a room.
type CreateRoomRequest struct {
	RoomName string `json:"room_name"`
}

// CreateRoomResponse wraps the new room. Its creator is already a member.
type CreateRoomResponse struct {
	Room model.Room `json:"room"`
}

// JoinResponse is returned by the join endpoint.
type JoinResponse struct {
	OK bool `json:"ok"`
}

// Message types

// PostMessageRequest is the request body for posting to a room.
type PostMessageRequest struct {
	MessageText string `json:"message_text"`
}

// PostMessageResponse wraps the stored message.
type PostMessageResponse struct {
	Message model.Message `json:"message"`
}

// MessagesResponse contains a room's message history, oldest first.
type MessagesResponse struct {
	Messages []model.Message `json:"messages"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// APIError is returned for responses with status >= 400.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (status %d)", e.Status)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}
