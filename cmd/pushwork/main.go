// Command pushwork is the CLI entrypoint: cobra root command wiring
// config, logging, and the Sync Engine for each subcommand (spec §6 CLI
// surface table).
//
// Grounded on cmd/client/main.go's signal-aware root command and
// tint/isatty logging setup.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/pushwork/pushwork/internal/version"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:          "pushwork",
	Short:        "Bidirectional CRDT-backed directory sync",
	Version:      version.Detailed(),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		newInitCmd(),
		newCloneCmd(),
		newSyncCmd(),
		newCommitCmd(),
		newDiffCmd(),
		newStatusCmd(),
		newURLCmd(),
		newLsCmd(),
		newCheckoutCmd(),
		newLogCmd(),
		newRmCmd(),
		newWatchCmd(),
	)
}

func main() {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))
}

// resolveRootArg returns args[0] if present, else the current
// directory, matching every subcommand's optional trailing "[path]".
func resolveRootArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", red("error"), fmt.Sprintf(format, a...))
	os.Exit(1)
}
