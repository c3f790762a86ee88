package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pushwork/pushwork/internal/workspace"
)

// newCloneCmd implements `clone <url> <path> [--force]` (spec §6).
func newCloneCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clone <url> <path>",
		Short: "Create .pushwork/, adopt a remote root directory URL, and sync to download it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, root := args[0], args[1]

			entries, err := os.ReadDir(root)
			if err == nil && len(entries) > 0 && !force {
				return fmt.Errorf("%s is not empty (use --force to clone into it anyway)", root)
			}

			ws, err := workspace.New(root)
			if err != nil {
				return err
			}
			if ws.IsInitialized() {
				return fmt.Errorf("%s is already a pushwork directory", ws.Root)
			}
			if err := ws.Setup(); err != nil {
				return err
			}

			a, err := buildApp(ws)
			if err != nil {
				return err
			}
			if err := a.eng.AdoptRoot(url); err != nil {
				return err
			}

			result, err := a.eng.Sync(cmd.Context())
			if err != nil {
				return err
			}
			printSyncResult(cmd, result)
			if !result.Success {
				return fmt.Errorf("clone sync completed with errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "clone into a non-empty directory")
	return cmd
}
