package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/tui"
)

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.restore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Start(ctx); err != nil {
				return err
			}
			if err := s.Follow(ctx); err != nil && !errors.Is(err, errors.ErrUnsupported) {
				return err
			}
			return tui.Run(ctx, s, s.Store())
		},
	}
}
