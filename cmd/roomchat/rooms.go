package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRoomsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.restore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rooms, err := s.LoadRooms(cmd.Context())
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return writeJSON(cmd.OutOrStdout(), rooms)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, r := range rooms {
				fmt.Fprintf(w, "%s\t%s\n", r.ID, r.Name())
			}
			return w.Flush()
		},
	}
	cmd.AddCommand(newRoomsCreateCmd(opts))
	return cmd
}

func newRoomsCreateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name...>",
		Short: "Create a room",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.restore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			room, err := s.CreateRoom(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return writeJSON(cmd.OutOrStdout(), room)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created room %s (%s)\n", room.Name(), room.ID)
			return nil
		},
	}
}
