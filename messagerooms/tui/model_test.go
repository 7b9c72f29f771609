package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/model"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/store"
)

type fakeActions struct {
	st *store.Store

	mu       sync.Mutex
	selected []string
	sent     []string
	joined   []string
	sendErr  error
}

func (f *fakeActions) LoadRooms(context.Context) ([]model.Room, error) {
	rooms := []model.Room{{ID: "r1", RoomName: "general"}, {ID: "r2", RoomName: "random"}}
	f.st.StoreRooms(rooms)
	return rooms, nil
}

func (f *fakeActions) SelectRoom(_ context.Context, id string) error {
	f.mu.Lock()
	f.selected = append(f.selected, id)
	f.mu.Unlock()
	f.st.SelectRoom(id)
	return nil
}

func (f *fakeActions) JoinRoom(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, id)
	return nil
}

func (f *fakeActions) SendMessage(_ context.Context, text string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, text)
	return &model.Message{MessageText: text}, nil
}

func newTestModel(t *testing.T) (Model, *fakeActions) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	st := store.New()
	st.Authenticate(model.User{ID: "42", Nickname: "alice"}, "tok")
	fa := &fakeActions{st: st}
	m := New(ctx, fa, st)
	m.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), fa
}

// exec runs cmd and the commands it batches and returns the messages that
// arrive within a short wait. Commands that block, such as cursor blinks
// and store watches, are abandoned.
func exec(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, exec(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// step applies msg and feeds back the results of the actions it started.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for _, out := range exec(cmd) {
		switch out.(type) {
		case errMsg, statusMsg:
			next, _ = m.Update(out)
			m = next.(Model)
		}
	}
	return m
}

func TestRoomsFollowStore(t *testing.T) {
	m, fa := newTestModel(t)
	_, err := fa.LoadRooms(context.Background())
	require.NoError(t, err)

	m = step(t, m, changeMsg{Mutation: store.MutationStoreRooms})
	require.Len(t, m.rooms, 2)
	assert.Contains(t, m.View(), "general")
	assert.Contains(t, m.View(), "random")
}

func TestSelectRoomWithKeys(t *testing.T) {
	m, fa := newTestModel(t)
	fa.LoadRooms(context.Background())
	m = step(t, m, changeMsg{Mutation: store.MutationStoreRooms})

	m = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"r1"}, fa.selected)
	assert.Equal(t, focusInput, m.focus)
}

func TestMessagesRendered(t *testing.T) {
	m, fa := newTestModel(t)
	fa.st.SelectRoom("r1")
	fa.st.AppendMessage(model.Message{
		ID:          "1",
		MessageText: "hi there",
		CreatedBy:   &model.User{Nickname: "bob"},
		CreatedAt:   time.Date(2026, 1, 1, 11, 58, 0, 0, time.UTC),
	})

	m = step(t, m, changeMsg{Mutation: store.MutationAppendMessage})
	view := m.View()
	assert.Contains(t, view, "bob")
	assert.Contains(t, view, "hi there")
	assert.Contains(t, view, "2 minutes ago")
	assert.Contains(t, view, "alice")
}

func TestSendFromInput(t *testing.T) {
	m, fa := newTestModel(t)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusInput, m.focus)

	for _, r := range "hello" {
		m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, "hello", m.input.Value())

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"hello"}, fa.sent)
	assert.Empty(t, m.input.Value())
	assert.NoError(t, m.err)
}

func TestSendErrorShown(t *testing.T) {
	m, fa := newTestModel(t)
	fa.sendErr = errors.New("no room selected")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m.input.SetValue("hello")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "Error: no room selected")
}

func TestJoinSelectedRoom(t *testing.T) {
	m, fa := newTestModel(t)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Empty(t, fa.joined)

	fa.st.SelectRoom("r2")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, []string{"r2"}, fa.joined)
	assert.Equal(t, "Joined room", m.status)
}

func TestLogoutQuits(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(changeMsg{Mutation: store.MutationLogout})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
