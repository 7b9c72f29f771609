package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/model"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/store"
)

func newListenCmd(opts *options) *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "listen [room]",
		Short: "Print messages as they arrive",
		Long: `Open the event stream and print every message appended to the store.
With a room argument that room is selected first, so its new messages are
shown; --history also prints the messages already in it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.restore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if len(args) == 1 {
				if err := s.SelectRoom(ctx, args[0]); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if history {
				for _, m := range s.Store().Messages() {
					printMessage(out, m, opts.JSONOutput)
				}
			}

			// Changes are read through Watch so printing never runs on the
			// dispatcher goroutine.
			changes := s.Store().Watch(ctx, 64)
			printed := len(s.Store().Messages())
			if err := s.Start(ctx); err != nil {
				return err
			}
			done := s.Client().Done()

			for {
				select {
				case c, ok := <-changes:
					if !ok {
						return nil
					}
					switch c.Mutation {
					case store.MutationStoreConnection:
						fmt.Fprintf(cmd.ErrOrStderr(), "connected (%s)\n", s.Store().ConnectionID())
					case store.MutationStoreMessages:
						printed = len(s.Store().Messages())
					case store.MutationAppendMessage:
						msgs := s.Store().Messages()
						for _, m := range msgs[min(printed, len(msgs)):] {
							printMessage(out, m, opts.JSONOutput)
						}
						printed = len(msgs)
					}
				case <-done:
					fmt.Fprintln(cmd.ErrOrStderr(), "stream closed")
					return nil
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Print the room history before new messages")
	return cmd
}

func printMessage(w io.Writer, m model.Message, asJSON bool) {
	if asJSON {
		_ = writeJSON(w, m)
		return
	}
	when := ""
	if !m.CreatedAt.IsZero() {
		when = " (" + humanize.Time(m.CreatedAt) + ")"
	}
	fmt.Fprintf(w, "[%s] %s: %s%s\n", m.RoomID, m.Author(), m.Text(), when)
}
