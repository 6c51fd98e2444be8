package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"appdeck-core/internal/config"
	"appdeck-core/internal/database"
)

func (a *app) newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the deployments schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(cmd, func(ctx context.Context, m *database.Migrator) error {
				return m.Up(ctx)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(cmd, func(ctx context.Context, m *database.Migrator) error {
				return m.Status(ctx)
			})
		},
	}

	var to int64
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration, or down to --to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if to < 0 {
				return fmt.Errorf("--to must not be negative")
			}
			return a.withMigrator(cmd, func(ctx context.Context, m *database.Migrator) error {
				return m.Down(ctx, to)
			})
		},
	}
	down.Flags().Int64Var(&to, "to", 0, "target version (0 rolls back one migration)")

	cmd.AddCommand(up, status, down)
	return cmd
}

func (a *app) withMigrator(cmd *cobra.Command, run func(ctx context.Context, m *database.Migrator) error) error {
	dbCfg := config.DatabaseFromEnv()
	if dbCfg.DSN == "" {
		return errors.New("DB_DSN is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := a.opts.OpenDB(ctx, &dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return run(ctx, database.NewMigrator(db, a.log("migrate")))
}
