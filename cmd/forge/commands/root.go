// Package commands implements the CLI commands for forge.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/build"
	"go.trai.ch/forge/internal/core/domain"
)

// CLI represents the command line interface for forge.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	SetJSON(enable bool)
	Install(ctx context.Context, opts app.InstallOptions) error
	InstallLocked(ctx context.Context, opts app.Options) error
	Remove(ctx context.Context, opts app.RemoveOptions) error
	List(ctx context.Context, w io.Writer, opts app.ListOptions) error
	Update(ctx context.Context, opts app.UpdateOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "forge",
		Short:         "A package manager for vendored C libraries",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("config", "c", domain.ConfigFileName, "Path to the forge configuration file")
	rootCmd.PersistentFlags().Bool("json", false, "Write logs as JSON")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		jsonLogs, _ := cmd.Flags().GetBool("json")
		c.app.SetJSON(jsonLogs)
	}

	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newRemoveCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newUpdateCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// options reads the flags shared by every command.
func options(cmd *cobra.Command) app.Options {
	path, _ := cmd.Flags().GetString("config")
	return app.Options{ConfigPath: path}
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
