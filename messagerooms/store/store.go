// Package store holds the client-side application state.
//
// A Store is the single source of truth for everything the UI shows: who is
// logged in, the server-push connection id, the room list, the selected room
// and its messages. State changes only through the named mutations below and
// every mutation is announced to subscribers exactly once.
package store

import (
	"context"
	"sync"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/model"
)

// Mutation names the operation that produced a Change.
type Mutation string

const (
	MutationAuthenticate     Mutation = "authenticate"
	MutationLogout           Mutation = "logout"
	MutationStoreConnection  Mutation = "storeEventsourceConnection"
	MutationStoreRooms       Mutation = "storeRooms"
	MutationAppendRoom       Mutation = "appendRoom"
	MutationSelectRoom       Mutation = "selectRoom"
	MutationStoreRoomDetails Mutation = "storeRoomDetails"
	MutationStoreMessages    Mutation = "storeMessages"
	MutationAppendMessage    Mutation = "appendMessage"
)

// Change is delivered to subscribers after each mutation.
type Change struct {
	Mutation Mutation
}

// Listener receives change notifications.
type Listener func(Change)

// AuthState holds the logged-in user. User and AccessToken are either both
// set or both empty.
type AuthState struct {
	User        *model.User
	AccessToken string
}

// EventSourceState holds the id the server assigned to the live connection.
type EventSourceState struct {
	ConnectionID string
}

// AppState is the full client state.
type AppState struct {
	Auth         AuthState
	EventSource  EventSourceState
	Rooms        []model.Room
	SelectedRoom string
	RoomDetail   model.RoomDetail
	Messages     []model.Message
}

// Store guards an AppState and fans out change notifications.
type Store struct {
	mu    sync.RWMutex
	state AppState

	subMu     sync.Mutex
	nextSubID int
	subs      []subscription
}

type subscription struct {
	id int
	fn Listener
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Authenticate records the logged-in user and token. An empty token clears
// the auth state instead, keeping user and token in step.
func (s *Store) Authenticate(user model.User, accessToken string) {
	s.mutate(MutationAuthenticate, func(st *AppState) {
		if accessToken == "" {
			st.Auth = AuthState{}
			return
		}
		u := user
		st.Auth = AuthState{User: &u, AccessToken: accessToken}
	})
}

// Logout clears the auth state.
func (s *Store) Logout() {
	s.mutate(MutationLogout, func(st *AppState) {
		st.Auth = AuthState{}
	})
}

// StoreEventsourceConnection records the server-assigned connection id.
func (s *Store) StoreEventsourceConnection(connectionID string) {
	s.mutate(MutationStoreConnection, func(st *AppState) {
		st.EventSource.ConnectionID = connectionID
	})
}

// StoreRooms replaces the room list.
func (s *Store) StoreRooms(rooms []model.Room) {
	cp := append([]model.Room(nil), rooms...)
	s.mutate(MutationStoreRooms, func(st *AppState) {
		st.Rooms = cp
	})
}

// AppendRoom adds a room to the end of the list.
func (s *Store) AppendRoom(room model.Room) {
	s.mutate(MutationAppendRoom, func(st *AppState) {
		st.Rooms = append(st.Rooms, room)
	})
}

// SelectRoom marks roomID as the current room. The id is not checked
// against the room list.
func (s *Store) SelectRoom(roomID string) {
	s.mutate(MutationSelectRoom, func(st *AppState) {
		st.SelectedRoom = roomID
	})
}

// StoreRoomDetails replaces the selected room detail.
func (s *Store) StoreRoomDetails(detail model.RoomDetail) {
	s.mutate(MutationStoreRoomDetails, func(st *AppState) {
		st.RoomDetail = detail
	})
}

// StoreMessages replaces the message list, typically on room switch.
func (s *Store) StoreMessages(messages []model.Message) {
	cp := append([]model.Message(nil), messages...)
	s.mutate(MutationStoreMessages, func(st *AppState) {
		st.Messages = cp
	})
}

// UpdateMessages replaces the message list with fn(current) under the state
// lock, so appends from the event stream cannot slip in between. Nothing
// happens unless roomID is still the selected room; the result reports
// whether the list was replaced.
func (s *Store) UpdateMessages(roomID string, fn func(current []model.Message) []model.Message) bool {
	s.mu.Lock()
	if s.state.SelectedRoom != roomID {
		s.mu.Unlock()
		return false
	}
	cur := append([]model.Message(nil), s.state.Messages...)
	s.state.Messages = append([]model.Message(nil), fn(cur)...)
	s.mu.Unlock()
	s.notify(Change{Mutation: MutationStoreMessages})
	return true
}

// AppendMessage adds one message to the end of the list. Callers must make
// sure the message belongs to the selected room.
func (s *Store) AppendMessage(message model.Message) {
	s.mutate(MutationAppendMessage, func(st *AppState) {
		st.Messages = append(st.Messages, message)
	})
}

func (s *Store) mutate(m Mutation, fn func(*AppState)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify(Change{Mutation: m})
}

// Auth returns the current auth state.
func (s *Store) Auth() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.state.Auth
	if a.User != nil {
		u := *a.User
		a.User = &u
	}
	return a
}

// IsAuthenticated reports whether a user and token are present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Auth.User != nil && s.state.Auth.AccessToken != ""
}

// ConnectionID returns the live connection id, or "" before the server
// has announced one.
func (s *Store) ConnectionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.EventSource.ConnectionID
}

// Rooms returns a copy of the room list.
func (s *Store) Rooms() []model.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Room(nil), s.state.Rooms...)
}

// SelectedRoom returns the selected room id and whether one is selected.
func (s *Store) SelectedRoom() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SelectedRoom, s.state.SelectedRoom != ""
}

// RoomDetails returns the detail of the selected room.
func (s *Store) RoomDetails() model.RoomDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RoomDetail
}

// Messages returns a copy of the selected room's messages.
func (s *Store) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Message(nil), s.state.Messages...)
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := s.state
	if cp.Auth.User != nil {
		u := *cp.Auth.User
		cp.Auth.User = &u
	}
	cp.Rooms = append([]model.Room(nil), s.state.Rooms...)
	cp.Messages = append([]model.Message(nil), s.state.Messages...)
	return cp
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. Listeners are called in subscription order, outside the
// state lock, so they may read the store freely.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Watch returns a channel of changes that is closed when ctx is done.
// Delivery is non-blocking: a reader that falls more than buffer changes
// behind misses notifications, but always observes the latest state on
// its next read.
func (s *Store) Watch(ctx context.Context, buffer int) <-chan Change {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Change, buffer)
	var mu sync.Mutex
	closed := false
	unsubscribe := s.Subscribe(func(c Change) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- c:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.subMu.Unlock()

	for _, sub := range subs {
		callListener(sub.fn, c)
	}
}

// callListener keeps one faulty listener from starving the others.
func callListener(fn Listener, c Change) {
	defer func() { _ = recover() }()
	fn(c)
}
