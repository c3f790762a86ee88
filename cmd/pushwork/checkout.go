package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCheckoutCmd implements `checkout <sync-id> [path]` (spec §6, §9):
// history/checkout is a declared Non-goal of the document model, so this
// command always errors rather than silently doing nothing.
func newCheckoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout <sync-id> [path]",
		Short: "Restore a prior sync round (not implemented)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("checkout: not implemented (history is not retained by the snapshot)")
		},
	}
	return cmd
}
