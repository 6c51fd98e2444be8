// Package cli implements the appdeckctl command line.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"appdeck-core/internal/config"
	"appdeck-core/internal/database"
	"appdeck-core/internal/logging"
)

// Options overrides process-level dependencies, mostly for tests
type Options struct {
	Out io.Writer
	Err io.Writer
	// OpenDB opens the migration target; defaults to database.NewConnection
	OpenDB func(ctx context.Context, cfg *config.DatabaseConfig) (*database.DB, error)
}

type app struct {
	opts    Options
	verbose bool
	logger  *logrus.Logger
}

// NewRootCmd builds the appdeckctl command tree
func NewRootCmd(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.OpenDB == nil {
		opts.OpenDB = database.NewConnection
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:           "appdeckctl",
		Short:         "Inspect repositories and manage the AppDeck database",
		Long:          "appdeckctl - command line companion to the AppDeck API: GitHub repository snapshots and schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv()
			logCfg := config.LogFromEnv()
			if a.verbose {
				logCfg.Level = "debug"
			}
			a.logger = logging.NewWithOutput(logCfg, a.opts.Err)
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(a.newRepoCmd(), a.newMigrateCmd())
	return root
}

func (a *app) log(component string) *logrus.Entry {
	if a.logger == nil {
		a.logger = logging.NewWithOutput(config.LogFromEnv(), a.opts.Err)
	}
	return logging.Component(a.logger, component)
}
