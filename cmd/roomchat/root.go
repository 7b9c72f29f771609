package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "roomchat",
		Short:         "Terminal client for Message Rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bind(cmd.PersistentFlags())

	cmd.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newRoomsCmd(opts),
		newListenCmd(opts),
		newSendCmd(opts),
		newChatCmd(opts),
		newSchemaCmd(),
	)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
