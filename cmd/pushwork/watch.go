package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/pushwork/pushwork/internal/fswatch"
)

// newWatchCmd implements `watch [path] [--script S --dir D]` (spec §6):
// runs S, then sync, on every debounced change under D. Only fatal
// setup errors (bad root, watcher init failure) stop the command; a
// failing script or sync round is logged and watching continues.
func newWatchCmd() *cobra.Command {
	var script string
	var dir string

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Resync whenever files change under the watched directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := resolveRootArg(args)
			a, err := openApp(root)
			if err != nil {
				return err
			}

			watchDir := dir
			if watchDir == "" {
				watchDir = a.root
			}

			w, err := fswatch.New(watchDir, ".pushwork")
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			defer w.Stop()

			ctx := cmd.Context()
			errCh := make(chan error, 1)
			go func() { errCh <- w.Start(ctx) }()

			fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", watchDir)

			for {
				select {
				case <-ctx.Done():
					return nil
				case err := <-errCh:
					if err != nil && err != context.Canceled {
						return fmt.Errorf("watch: %w", err)
					}
					return nil
				case <-w.Resync:
					runScriptAndSync(ctx, a, script)
				}
			}
		},
	}

	cmd.Flags().StringVar(&script, "script", "", "command to run before each resync")
	cmd.Flags().StringVar(&dir, "dir", "", "directory to watch (default: the synced root)")
	return cmd
}

func runScriptAndSync(ctx context.Context, a *app, script string) {
	if script != "" {
		c := exec.CommandContext(ctx, "sh", "-c", script)
		c.Dir = a.root
		if out, err := c.CombinedOutput(); err != nil {
			slog.Warn("watch: script failed", "error", err, "output", string(out))
		}
	}
	if _, err := a.eng.Sync(ctx); err != nil {
		slog.Warn("watch: sync failed", "error", err)
	}
}
