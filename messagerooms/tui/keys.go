package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Join   key.Binding
	Focus  key.Binding
	Reload key.Binding
	Quit   key.Binding
}

var defaultKeyMap = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open room / send")),
	Join:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "join room")),
	Focus:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
	Reload: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload rooms")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Focus, k.Select, k.Join, k.Reload, k.Quit}
}
