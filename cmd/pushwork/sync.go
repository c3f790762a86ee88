package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSyncCmd implements `sync [path] [--dry-run]` (spec §6).
func newSyncCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync [path]",
		Short: "Run the full two-phase sync: detect, push, barrier, pull",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(resolveRootArg(args))
			if err != nil {
				return err
			}

			if dryRun {
				return runPreview(cmd, a)
			}

			result, err := a.eng.Sync(cmd.Context())
			if err != nil {
				return err
			}
			printSyncResult(cmd, result)
			if !result.Success {
				return fmt.Errorf("sync completed with errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview changes without mutating the repository")
	return cmd
}
