package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusLabelStyle = lipgloss.NewStyle().Bold(true).Width(14)

// newStatusCmd implements `status [path]` (spec §6): report snapshot
// and change count, never a non-zero exit unless I/O fails.
func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Report the current snapshot and pending change count",
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
			out := cmd.OutOrStdout()
			row := func(label, value string) {
				fmt.Fprintf(out, "%s %s\n", statusLabelStyle.Render(label), value)
			}
			row("root:", a.root)
			row("root url:", status.Snapshot.RootDirectoryURL)
			row("tracked files:", fmt.Sprintf("%d", len(status.Snapshot.Files)))
			row("tracked dirs:", fmt.Sprintf("%d", len(status.Snapshot.Directories)))
			row("last sync:", status.LastSync.Format("2006-01-02 15:04:05"))
			if status.HasChanges {
				row("changes:", fmt.Sprintf("%s (%d)", red("pending"), status.ChangeCount))
			} else {
				row("changes:", green("none"))
			}
			return nil
		},
	}
	return cmd
}
