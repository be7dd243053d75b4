package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
)

func (c *CLI) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [name@version]",
		Short: "Install a package and its dependencies, or every locked package",
		Long: `Install resolves name@version and its dependencies and installs them in
dependency order. Without an argument every package pinned in the lock file
is installed with its pinned source and digest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return c.app.InstallLocked(cmd.Context(), options(cmd))
			}

			locked, _ := cmd.Flags().GetBool("locked")
			return c.app.Install(cmd.Context(), app.InstallOptions{
				Options: options(cmd),
				Package: args[0],
				Locked:  locked,
			})
		},
	}

	cmd.Flags().BoolP("locked", "l", false, "Require every package to be pinned in the lock file")

	return cmd
}
