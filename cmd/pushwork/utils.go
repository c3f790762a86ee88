package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pushwork/pushwork/internal/engine"
)

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// printSyncResult renders a SyncResult the way most commands report
// their outcome (spec §7: "CLI commands translate success=false into a
// non-zero exit after printing the collected errors").
func printSyncResult(cmd *cobra.Command, result *engine.SyncResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "round %s: %s files, %s directories changed\n",
		cyan(result.SyncRoundID),
		humanize.Comma(int64(result.FilesChanged)),
		humanize.Comma(int64(result.DirectoriesChanged)),
	)
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "%s: %s\n", "warn", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", red("error"), e.Error())
	}
}
