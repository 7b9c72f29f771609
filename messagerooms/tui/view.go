package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/model"
)

const roomPaneWidth = 24

var (
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
	activeStyle   = paneStyle.BorderForeground(lipgloss.Color("6"))
	headerStyle   = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Underline(true)
	authorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// layout sizes the viewport and input to the window.
func (m *Model) layout() {
	chatWidth := m.width - roomPaneWidth - 4
	if chatWidth < 10 {
		chatWidth = 10
	}
	// header, input, status and borders
	chatHeight := m.height - 6
	if chatHeight < 1 {
		chatHeight = 1
	}
	m.viewport.Width = chatWidth
	m.viewport.Height = chatHeight
	m.input.Width = chatWidth - len(m.input.Prompt) - 1
}

// refreshMessages re-renders the message list and keeps it scrolled to
// the newest message.
func (m *Model) refreshMessages() {
	msgs := m.store.Messages()
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, m.formatMessage(msg))
	}
	if len(lines) == 0 {
		lines = append(lines, helpStyle.Render("No messages yet."))
	}

	content := strings.Join(lines, "\n")
	if m.viewport.Width > 0 {
		content = lipgloss.NewStyle().Width(m.viewport.Width).Render(content)
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m Model) formatMessage(msg model.Message) string {
	author := msg.Author()
	if author == "" {
		author = "?"
	}
	line := authorStyle.Render(author) + ": " + msg.Text()
	if !msg.CreatedAt.IsZero() {
		line += " " + timeStyle.Render(humanize.RelTime(msg.CreatedAt, m.now(), "ago", "from now"))
	}
	return line
}

// View renders the rooms pane next to the chat pane.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	rooms := m.renderRooms()
	chat := m.renderChat()

	roomBox := paneStyle
	chatBox := paneStyle
	if m.focus == focusRooms {
		roomBox = activeStyle
	} else {
		chatBox = activeStyle
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		roomBox.Width(roomPaneWidth).Height(m.viewport.Height+2).Render(rooms),
		chatBox.Width(m.viewport.Width).Render(chat),
	)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatus())
}

func (m Model) renderRooms() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Rooms"))
	b.WriteString("\n")
	if len(m.rooms) == 0 {
		b.WriteString(helpStyle.Render("none"))
		return b.String()
	}
	selected, _ := m.store.SelectedRoom()
	for i, r := range m.rooms {
		name := r.Name()
		if r.ID.String() == selected {
			name = selectedStyle.Render(name)
		}
		if i == m.cursor && m.focus == focusRooms {
			b.WriteString(cursorStyle.Render("> ") + name)
		} else {
			b.WriteString("  " + name)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderChat() string {
	header := "No room selected"
	if id, ok := m.store.SelectedRoom(); ok {
		detail := m.store.RoomDetails()
		name := id
		if detail.Room.ID.String() == id {
			name = detail.Room.Name()
		}
		header = name
		if detail.Room.ID.String() == id && !detail.IsMember {
			header += helpStyle.Render("  (not a member, ctrl+o to join)")
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(header),
		m.viewport.View(),
		m.input.View(),
	)
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	var parts []string
	if auth := m.store.Auth(); auth.User != nil {
		parts = append(parts, auth.User.Nickname)
	}
	if id := m.store.ConnectionID(); id != "" {
		parts = append(parts, "connected "+id)
	} else {
		parts = append(parts, "offline")
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	var help []string
	for _, b := range m.keys.help() {
		h := b.Help()
		help = append(help, fmt.Sprintf("%s %s", h.Key, h.Desc))
	}
	return helpStyle.Render(strings.Join(parts, " · ") + "  |  " + strings.Join(help, " · "))
}
