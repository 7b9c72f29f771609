package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/store"
)

// Run shows the chat screen until the user quits, logs out or ctx is done.
func Run(ctx context.Context, actions Actions, st *store.Store) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(ctx, actions, st), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run chat ui: %w", err)
	}
	return nil
}
