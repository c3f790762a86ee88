package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pushwork/pushwork/internal/config"
	"github.com/pushwork/pushwork/internal/workspace"
)

// newInitCmd implements `init <path> [--sync-server U --sync-server-storage-id I]`
// (spec §6 CLI table).
func newInitCmd() *cobra.Command {
	var syncServer, storageID string

	cmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Create .pushwork/, create the root directory document, and run an initial sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (syncServer == "") != (storageID == "") {
				return fmt.Errorf("--sync-server and --sync-server-storage-id must be given together")
			}

			root := args[0]
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

			if syncServer != "" {
				if err := writeServerConfig(ws.Root, syncServer, storageID); err != nil {
					return err
				}
			}

			a, err := buildApp(ws)
			if err != nil {
				return err
			}
			rootURL, err := a.eng.InitRoot(cmd.Context())
			if err != nil {
				return err
			}

			result, err := a.eng.Sync(cmd.Context())
			if err != nil {
				return err
			}
			printSyncResult(cmd, result)
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\nroot: %s\n", green(ws.Root), cyan(rootURL))
			if !result.Success {
				return fmt.Errorf("initial sync completed with errors")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&syncServer, "sync-server", "", "relay websocket URL")
	cmd.Flags().StringVar(&storageID, "sync-server-storage-id", "", "relay storage identity")
	return cmd
}

func writeServerConfig(root, syncServer, storageID string) error {
	path := config.LocalPath(root)
	cfg := fmt.Sprintf("{\n  \"sync_server\": %q,\n  \"sync_server_storage_id\": %q\n}\n", syncServer, storageID)
	return writeFile(path, cfg)
}
