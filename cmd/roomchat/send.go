package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSendCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <room> <text>...",
		Short: "Post a message to a room",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.restore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			msg, err := s.SendMessageTo(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return writeJSON(cmd.OutOrStdout(), msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent message %s\n", msg.ID)
			return nil
		},
	}
}
