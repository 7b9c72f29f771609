package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "pw" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"user":{"id":"42","nickname":"` + req.Nickname + `"},"access_token":"tok"}`))
	})
	authed := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if _, err := uuid.Parse(r.Header.Get(RequestIDHeader)); err != nil {
				http.Error(w, "missing request id", http.StatusBadRequest)
				return
			}
			if r.Header.Get("Authorization") != "tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"invalid access token"}`))
				return
			}
			fn(w, r)
		}
	}
	mux.HandleFunc("GET /api/rooms", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"r1","room_name":"general"},{"id":2,"room_name":"random","topic":"misc"}]`))
	}))
	mux.HandleFunc("POST /api/rooms", authed(func(w http.ResponseWriter, r *http.Request) {
		var req CreateRoomRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.RoomName == "taken" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"room exists"}`))
			return
		}
		_, _ = w.Write([]byte(`{"room":{"id":9,"room_name":"` + req.RoomName + `","user_id":"42"}}`))
	}))
	mux.HandleFunc("GET /api/rooms/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"roomDetails":{"id":"` + r.PathValue("id") + `","room_name":"general"},"is_member":true}`))
	}))
	mux.HandleFunc("PUT /api/rooms/{id}/join", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	mux.HandleFunc("GET /api/rooms/{id}/messages", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[{"id":1,"room_id":"r1","message_text":"hello"},{"id":2,"room_id":"r1","message_text":"again"}]}`))
	}))
	mux.HandleFunc("POST /api/rooms/{id}/message", authed(func(w http.ResponseWriter, r *http.Request) {
		var req PostMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(`{"message":{"id":3,"room_id":"` + r.PathValue("id") + `","message_text":"` + req.MessageText + `"}}`))
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL + "/api/")

	resp, err := c.Login(context.Background(), LoginRequest{Nickname: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.AccessToken)
	assert.Equal(t, "42", resp.User.ID.String())
	assert.Equal(t, "alice", resp.User.Nickname)

	_, err = c.Login(context.Background(), LoginRequest{Nickname: "alice", Password: "nope"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid credentials", apiErr.Message)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestRoomEndpoints(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL + "/api")
	c.SetToken("tok")
	ctx := context.Background()

	rooms, err := c.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "general", rooms[0].Name())
	assert.Equal(t, "2", rooms[1].ID.String())
	assert.Equal(t, "misc", rooms[1].Attrs["topic"])

	detail, err := c.RoomDetails(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, detail.IsMember)
	assert.Equal(t, "r1", detail.Room.ID.String())

	require.NoError(t, c.JoinRoom(ctx, "r1"))

	msgs, err := c.GetMessages(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text())

	msg, err := c.PostMessage(ctx, "r1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "3", msg.ID.String())
	assert.Equal(t, "hi", msg.Text())
}

func TestCreateRoom(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL + "/api")
	c.SetToken("tok")

	room, err := c.CreateRoom(context.Background(), "books")
	require.NoError(t, err)
	assert.Equal(t, "9", room.ID.String())
	assert.Equal(t, "books", room.Name())
	assert.Equal(t, "42", room.UserID.String())

	_, err = c.CreateRoom(context.Background(), "taken")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestUnauthorized(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL + "/api")

	_, err := c.ListRooms(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "invalid access token")
}

func TestPlainErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).JoinRoom(context.Background(), "r1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "boom", apiErr.Message)
	assert.False(t, IsUnauthorized(err))
}
