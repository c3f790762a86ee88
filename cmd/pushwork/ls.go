package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var lsHeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)

// newLsCmd implements `ls [path] [--long]` (spec §6): list tracked files,
// error if the workspace isn't initialized.
func newLsCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List tracked files in the local snapshot",
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

			paths := make([]string, 0, len(status.Snapshot.Files))
			for p := range status.Snapshot.Files {
				paths = append(paths, p)
			}
			sort.Strings(paths)

			out := cmd.OutOrStdout()
			if long {
				fmt.Fprintf(out, "%s\n", lsHeaderStyle.Render(fmt.Sprintf("%-40s %-24s %s", "PATH", "MIME TYPE", "HEAD")))
			}
			for _, p := range paths {
				if !long {
					fmt.Fprintln(out, p)
					continue
				}
				entry := status.Snapshot.Files[p]
				fmt.Fprintf(out, "%-40s %-24s %s\n", p, entry.MimeType, entry.Head)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&long, "long", false, "print mime type and head alongside each path")
	return cmd
}
