package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newURLCmd implements `url [path]` (spec §6): print rootDirectoryUrl,
// non-zero exit when not initialized or the URL is missing.
func newURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url [path]",
		Short: "Print the root directory document's URL",
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
			if status.Snapshot.RootDirectoryURL == "" {
				return fmt.Errorf("root directory URL not set")
			}
			fmt.Fprintln(cmd.OutOrStdout(), status.Snapshot.RootDirectoryURL)
			return nil
		},
	}
	return cmd
}
