package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pushwork/pushwork/internal/detect"
)

// newDiffCmd implements `diff [path] [--name-only]` (spec §6): preview
// changes, never a non-zero exit unless I/O fails.
func newDiffCmd() *cobra.Command {
	var nameOnly bool

	cmd := &cobra.Command{
		Use:   "diff [path]",
		Short: "Preview pending changes without mutating anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(resolveRootArg(args))
			if err != nil {
				return err
			}
			return printDiff(cmd, a, nameOnly)
		},
	}

	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "print paths only, no change-type annotation")
	return cmd
}

func runPreview(cmd *cobra.Command, a *app) error {
	return printDiff(cmd, a, false)
}

func printDiff(cmd *cobra.Command, a *app, nameOnly bool) error {
	detected, candidates, err := a.eng.PreviewChanges(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	for _, c := range detected.Changes {
		if nameOnly {
			fmt.Fprintln(out, c.Path)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", changeTypeLabel(c.ChangeType), c.Path)
	}
	for _, mv := range candidates {
		if nameOnly {
			fmt.Fprintln(out, mv.ToPath)
			continue
		}
		fmt.Fprintf(out, "MOVE\t%s -> %s (%.2f)\n", mv.FromPath, mv.ToPath, mv.Similarity)
	}
	return nil
}

func changeTypeLabel(t detect.ChangeType) string {
	switch t {
	case detect.LocalOnly:
		return green("LOCAL")
	case detect.RemoteOnly:
		return cyan("REMOTE")
	case detect.BothChanged:
		return red("CONFLICT")
	default:
		return string(t)
	}
}
