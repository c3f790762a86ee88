package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newRmCmd implements `rm [path]` (spec §6): delete the local
// `.pushwork` control directory, printing the root URL so the workspace
// can be re-cloned. Errors if the directory was never initialized.
func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm [path]",
		Short: "Remove the local .pushwork control directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(resolveRootArg(args))
			if err != nil {
				return err
			}

			status, err := a.eng.GetStatus(cmd.Context())
			if err != nil {
				return err
			}
			rootURL := status.Snapshot.RootDirectoryURL

			if err := a.ws.Unlock(); err != nil {
				return err
			}
			if err := os.RemoveAll(a.ws.ControlDir); err != nil {
				return fmt.Errorf("rm: remove control directory: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, green("removed local .pushwork directory"))
			if rootURL != "" {
				fmt.Fprintf(out, "recover with: pushwork clone %s <path>\n", rootURL)
			}
			return nil
		},
	}
	return cmd
}
