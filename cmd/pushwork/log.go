package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newLogCmd implements `log [path]` (spec §6, §9): the snapshot format
// records only the most recent sync round, not a history, so this
// reports what's available and never errors.
func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [path]",
		Short: "Report the most recent sync round",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(resolveRootArg(args))
			if err != nil {
				// Uninitialized workspaces have no history to report; this
				// command never errors.
				fmt.Fprintln(cmd.OutOrStdout(), "no sync history (workspace not initialized)")
				return nil
			}
			status, err := a.eng.GetStatus(cmd.Context())
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no sync history available")
				return nil
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "last sync: %s\n", status.LastSync.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "files tracked: %d\n", len(status.Snapshot.Files))
			fmt.Fprintln(out, "(only the most recent sync round is retained; no further history is kept)")
			return nil
		},
	}
	return cmd
}
