package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xvetrov/deskpilot/internal/action"
)

// newActionsCmd creates the `actions` command, which lists the action
// vocabulary the planner is allowed to use.
func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "Lists all registered automation actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := action.NewRegistry()
			for _, name := range registry.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
