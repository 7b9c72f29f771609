// Package session ties credentials, REST calls and the event stream to one
// store: it restores or performs the login, keeps the stream open while the
// user is authenticated and loads room data when a room is selected.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/logging"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/model"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/rest"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/store"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/tokenstore"
)

var (
	// ErrNotAuthenticated is returned by operations that need a login.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoRoomSelected is returned by SendMessage without a selected room.
	ErrNoRoomSelected = errors.New("no room selected")
)

// Options configures a Session. Stream and API are required.
type Options struct {
	Stream messagerooms.Config
	API    *rest.Client
	// Tokens defaults to an in-memory store.
	Tokens *tokenstore.TokenStore
	// Store defaults to a fresh store.
	Store *store.Store
	// Registry replaces the default handlers of every stream.
	Registry *messagerooms.Registry
	// OnError receives stream and event errors.
	OnError func(error)
	Logger  *logrus.Entry
	// Now is used for token expiry checks.
	Now func() time.Time
}

// Session owns at most one live event stream.
type Session struct {
	opts   Options
	api    *rest.Client
	tokens *tokenstore.TokenStore
	store  *store.Store
	logger *logrus.Entry

	mu     sync.Mutex
	client *messagerooms.Client
}

// New builds a session from opts.
func New(opts Options) *Session {
	if opts.Tokens == nil {
		opts.Tokens = tokenstore.New(tokenstore.NewMemoryBackend())
	}
	if opts.Store == nil {
		opts.Store = store.New()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("session")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		opts:   opts,
		api:    opts.API,
		tokens: opts.Tokens,
		store:  opts.Store,
		logger: opts.Logger,
	}
}

func (s *Session) Store() *store.Store { return s.store }

func (s *Session) Tokens() *tokenstore.TokenStore { return s.tokens }

// Client returns the current stream client, or nil when none is open.
func (s *Session) Client() *messagerooms.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Bootstrap restores a previous login from the token store and reports
// whether the store is now authenticated. An expired token is discarded.
func (s *Session) Bootstrap() (bool, error) {
	token, err := s.tokens.AccessToken()
	if err != nil {
		return false, err
	}
	user, err := s.tokens.User()
	if err != nil {
		return false, err
	}
	if token == "" || user == nil {
		return false, nil
	}

	if expired, exp := s.tokenExpired(token); expired {
		s.logger.WithField("expired_at", exp).Info("Discarding expired access token")
		if err := s.tokens.Clear(); err != nil {
			return false, err
		}
		return false, nil
	}

	s.store.Authenticate(*user, token)
	s.api.SetToken(token)
	s.logger.WithField("user", user.Nickname).Debug("Restored session")
	return true, nil
}

// tokenExpired reads the exp claim without verifying the signature; the
// server does that. Tokens that are not JWTs never expire here.
func (s *Session) tokenExpired(token string) (bool, time.Time) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, time.Time{}
	}
	return !s.opts.Now().Before(exp.Time), exp.Time
}

// Login authenticates with the server, persists the credentials and opens
// the event stream.
func (s *Session) Login(ctx context.Context, nickname, password string) error {
	if err := s.Authenticate(ctx, nickname, password); err != nil {
		return err
	}
	return s.Start(ctx)
}

// Authenticate logs in and persists the credentials without opening the
// event stream.
func (s *Session) Authenticate(ctx context.Context, nickname, password string) error {
	resp, err := s.api.Login(ctx, rest.LoginRequest{Nickname: nickname, Password: password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := s.tokens.Save(resp.User, resp.AccessToken); err != nil {
		return err
	}
	s.store.Authenticate(resp.User, resp.AccessToken)
	s.api.SetToken(resp.AccessToken)
	s.logger.WithField("user", resp.User.Nickname).Info("Logged in")
	return nil
}

// Start opens the event stream for the authenticated user. It is a no-op
// while a stream is open.
func (s *Session) Start(ctx context.Context) error {
	if !s.store.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		switch s.client.State() {
		case messagerooms.StateConnecting, messagerooms.StateConnected:
			return nil
		}
	}

	cfg := s.opts.Stream
	cfg.Token = ""
	c := messagerooms.NewClient(cfg, s.store)
	c.SetLogger(logging.Adapt(logging.NewLogger("sse")))
	if s.opts.Registry != nil {
		c.SetRegistry(s.opts.Registry)
	}
	c.OnError(s.reportError)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	s.client = c
	return nil
}

func (s *Session) reportError(err error) {
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
}

// Stop closes the event stream, if any.
func (s *Session) Stop() error {
	s.mu.Lock()
	c := s.client
	s.client = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

// Logout closes the stream before clearing the credentials so no event is
// applied to a logged-out store.
func (s *Session) Logout() error {
	stopErr := s.Stop()
	clearErr := s.tokens.Clear()
	s.store.Logout()
	s.api.SetToken("")
	s.logger.Info("Logged out")
	return errors.Join(stopErr, clearErr)
}

// LoadRooms fetches the room list into the store.
func (s *Session) LoadRooms(ctx context.Context) ([]model.Room, error) {
	if !s.store.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	rooms, err := s.api.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	s.store.StoreRooms(rooms)
	return rooms, nil
}

// CreateRoom creates a room named name and appends it to the room list.
func (s *Session) CreateRoom(ctx context.Context, name string) (*model.Room, error) {
	if !s.store.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("room name is empty")
	}
	room, err := s.api.CreateRoom(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	s.store.AppendRoom(*room)
	return room, nil
}

// SelectRoom makes roomID the selected room and loads its details and, for
// members, its history. Stream messages for the room are appended from the
// moment it is selected.
func (s *Session) SelectRoom(ctx context.Context, roomID string) error {
	if !s.store.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	s.store.SelectRoom(roomID)
	s.store.StoreMessages(nil)

	detail, err := s.api.RoomDetails(ctx, roomID)
	if err != nil {
		return fmt.Errorf("room details: %w", err)
	}
	s.store.StoreRoomDetails(*detail)
	if !detail.IsMember {
		return nil
	}

	history, err := s.api.GetMessages(ctx, roomID)
	if err != nil {
		return fmt.Errorf("room messages: %w", err)
	}
	s.store.UpdateMessages(roomID, func(streamed []model.Message) []model.Message {
		return mergeHistory(history, streamed)
	})
	return nil
}

// mergeHistory puts history first and keeps streamed messages that arrived
// while it was loading, dropping ids already in history.
func mergeHistory(history, streamed []model.Message) []model.Message {
	seen := make(map[model.ID]bool, len(history))
	out := make([]model.Message, 0, len(history)+len(streamed))
	for _, m := range history {
		if m.ID != "" {
			seen[m.ID] = true
		}
		out = append(out, m)
	}
	for _, m := range streamed {
		if m.ID != "" && seen[m.ID] {
			continue
		}
		out = append(out, m)
	}
	return out
}

// JoinRoom joins roomID and reloads it when it is the selected room.
func (s *Session) JoinRoom(ctx context.Context, roomID string) error {
	if !s.store.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if err := s.api.JoinRoom(ctx, roomID); err != nil {
		return err
	}
	if selected, ok := s.store.SelectedRoom(); ok && selected == roomID {
		return s.SelectRoom(ctx, roomID)
	}
	return nil
}

// SendMessage posts text to the selected room. The message is not added to
// the store here; it arrives on the event stream like any other.
func (s *Session) SendMessage(ctx context.Context, text string) (*model.Message, error) {
	if !s.store.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	roomID, ok := s.store.SelectedRoom()
	if !ok {
		return nil, ErrNoRoomSelected
	}
	return s.SendMessageTo(ctx, roomID, text)
}

// SendMessageTo posts text to roomID without selecting it.
func (s *Session) SendMessageTo(ctx context.Context, roomID, text string) (*model.Message, error) {
	if !s.store.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	msg, err := s.api.PostMessage(ctx, roomID, text)
	if err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	return msg, nil
}

// Close stops the stream and releases the token store.
func (s *Session) Close() error {
	return errors.Join(s.Stop(), s.tokens.Close())
}
