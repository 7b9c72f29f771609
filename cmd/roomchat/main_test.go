package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Nickname, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "pw" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}
		fmt.Fprintf(w, `{"user":{"id":"42","nickname":%q},"access_token":"tok"}`, req.Nickname)
	})
	mux.HandleFunc("GET /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"r1","room_name":"general"}]`))
	})
	mux.HandleFunc("POST /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RoomName string `json:"room_name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		fmt.Fprintf(w, `{"room":{"id":"r2","room_name":%q,"user_id":"42"}}`, req.RoomName)
	})
	mux.HandleFunc("POST /api/rooms/{id}/message", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MessageText string `json:"message_text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		fmt.Fprintf(w, `{"message":{"id":7,"room_id":%q,"message_text":%q}}`, r.PathValue("id"), req.MessageText)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MESSAGEROOMS_URL", "")
	t.Setenv("MESSAGEROOMS_TRANSPORT", "")
	t.Setenv("MESSAGEROOMS_TOKEN_STORE", "")
	t.Setenv("MESSAGEROOMS_LOG_LEVEL", "")
}

func TestLoginRoomsSendLogout(t *testing.T) {
	isolate(t)
	srv := fakeAPI(t)
	db := filepath.Join(t.TempDir(), "tokens.db")
	common := []string{"--url", srv.URL, "--token-store", "sqlite"}
	t.Setenv("MESSAGEROOMS_TOKEN_STORE", "sqlite:"+db)

	out, err := run(t, "pw\n", append(common, "login", "alice")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")

	out, err = run(t, "", append(common, "rooms")...)
	require.NoError(t, err)
	assert.Contains(t, out, "r1")
	assert.Contains(t, out, "general")

	out, err = run(t, "", append(common, "rooms", "create", "team", "chat")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Created room team chat (r2)")

	out, err = run(t, "", append(common, "--json", "send", "r1", "hello", "there")...)
	require.NoError(t, err)
	assert.Contains(t, out, `"message_text": "hello there"`)

	out, err = run(t, "", append(common, "logout")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = run(t, "", append(common, "rooms")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestLoginBadPassword(t *testing.T) {
	isolate(t)
	srv := fakeAPI(t)

	_, err := run(t, "nope\n", "--url", srv.URL, "--token-store", "memory", "login", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, "", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"token_store"`)
}
