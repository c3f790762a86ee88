package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCommitCmd implements `commit [path] [--dry-run]`: push phase only,
// no network barrier (spec §6, §9 open question).
func newCommitCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "commit [path]",
		Short: "Push local changes into the document graph without contacting the relay",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(resolveRootArg(args))
			if err != nil {
				return err
			}

			if dryRun {
				return runPreview(cmd, a)
			}

			result, err := a.eng.CommitLocal(cmd.Context())
			if err != nil {
				return err
			}
			printSyncResult(cmd, result)
			if !result.Success {
				return fmt.Errorf("commit completed with errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview changes without pushing")
	return cmd
}
