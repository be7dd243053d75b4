package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
)

func (c *CLI) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed packages",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fingerprint, _ := cmd.Flags().GetBool("fingerprint")
			return c.app.List(cmd.Context(), cmd.OutOrStdout(), app.ListOptions{
				Options:     options(cmd),
				Fingerprint: fingerprint,
			})
		},
	}

	cmd.Flags().BoolP("fingerprint", "f", false, "Print a content fingerprint of each installed tree")

	return cmd
}
