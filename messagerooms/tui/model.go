// Package tui is a terminal chat UI that renders the client store and
// re-renders on every store change.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/model"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/store"
)

// Actions are the server calls the UI triggers. *session.Session
// implements it.
type Actions interface {
	LoadRooms(ctx context.Context) ([]model.Room, error)
	SelectRoom(ctx context.Context, roomID string) error
	JoinRoom(ctx context.Context, roomID string) error
	SendMessage(ctx context.Context, text string) (*model.Message, error)
}

type focus int

const (
	focusRooms focus = iota
	focusInput
)

const requestTimeout = 15 * time.Second

// changeMsg is sent for every store mutation.
type changeMsg store.Change

// errMsg carries a failed action.
type errMsg struct{ err error }

// statusMsg replaces the status line.
type statusMsg string

// Model is the chat screen.
type Model struct {
	ctx     context.Context
	actions Actions
	store   *store.Store
	changes <-chan store.Change
	keys    keyMap

	rooms    []model.Room
	cursor   int
	focus    focus
	viewport viewport.Model
	input    textinput.Model
	status   string
	err      error
	now      func() time.Time

	width  int
	height int
	ready  bool
}

// New creates the chat model. Store changes are read from a Watch channel
// that is closed when ctx is done.
func New(ctx context.Context, actions Actions, st *store.Store) Model {
	ti := textinput.New()
	ti.Placeholder = "Write a message..."
	ti.CharLimit = 2000
	ti.Prompt = "> "

	return Model{
		ctx:      ctx,
		actions:  actions,
		store:    st,
		changes:  st.Watch(ctx, 64),
		keys:     defaultKeyMap,
		rooms:    st.Rooms(),
		viewport: viewport.New(0, 0),
		input:    ti,
		now:      time.Now,
	}
}

func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		c, ok := <-m.changes
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

// Init initializes the component.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForChange(), m.loadRooms())
}

func (m Model) run(fn func(ctx context.Context) error, done string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg(done)
	}
}

func (m Model) loadRooms() tea.Cmd {
	return m.run(func(ctx context.Context) error {
		_, err := m.actions.LoadRooms(ctx)
		return err
	}, "")
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.refreshMessages()

	case changeMsg:
		switch msg.Mutation {
		case store.MutationStoreRooms, store.MutationAppendRoom:
			m.rooms = m.store.Rooms()
			if m.cursor >= len(m.rooms) {
				m.cursor = max(len(m.rooms)-1, 0)
			}
		case store.MutationStoreMessages, store.MutationAppendMessage, store.MutationSelectRoom, store.MutationStoreRoomDetails:
			m.refreshMessages()
		case store.MutationLogout:
			return m, tea.Quit
		}
		cmds = append(cmds, m.waitForChange())

	case errMsg:
		m.err = msg.err

	case statusMsg:
		m.err = nil
		m.status = string(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusRooms {
			m.focus = focusInput
			return m, m.input.Focus()
		}
		m.focus = focusRooms
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m, m.loadRooms()
	case key.Matches(msg, m.keys.Join):
		id, ok := m.store.SelectedRoom()
		if !ok {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error {
			return m.actions.JoinRoom(ctx, id)
		}, "Joined room")
	}

	if m.focus == focusInput {
		if key.Matches(msg, m.keys.Select) {
			text := m.input.Value()
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.run(func(ctx context.Context) error {
				_, err := m.actions.SendMessage(ctx, text)
				return err
			}, "")
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rooms)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		if m.cursor < len(m.rooms) {
			id := m.rooms[m.cursor].ID.String()
			m.focus = focusInput
			return m, tea.Batch(m.input.Focus(), m.run(func(ctx context.Context) error {
				return m.actions.SelectRoom(ctx, id)
			}, ""))
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}
