package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
)

func (c *CLI) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove name@version",
		Aliases: []string{"rm"},
		Short:   "Remove an installed package",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Remove(cmd.Context(), app.RemoveOptions{
				Options: options(cmd),
				Package: args[0],
			})
		},
	}
}
