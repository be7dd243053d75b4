package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
)

func (c *CLI) newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [name@version]",
		Short: "Update installed packages to their latest versions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.UpdateOptions{Options: options(cmd)}
			if len(args) == 1 {
				opts.Package = args[0]
			}
			return c.app.Update(cmd.Context(), opts)
		},
	}
}
