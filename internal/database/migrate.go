package database

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrator applies the embedded schema migrations
type Migrator struct {
	db  *DB
	log *logrus.Entry
}

// NewMigrator returns a migration runner backed by goose
func NewMigrator(db *DB, log *logrus.Entry) *Migrator {
	return &Migrator{db: db, log: log}
}

func (m *Migrator) setup() error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(m.log)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return nil
}

// Up applies pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	m.log.Info("applying migrations")
	if err := goose.UpContext(runCtx, m.db.GetConnection(), migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	m.log.Info("migrations applied")
	return nil
}

// Status logs applied and pending migrations
func (m *Migrator) Status(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return err
	}
	if err := goose.StatusContext(ctx, m.db.GetConnection(), migrationsDir); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

// Down rolls back to targetVersion, or the latest migration when it is zero
func (m *Migrator) Down(ctx context.Context, targetVersion int64) error {
	if err := m.setup(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if targetVersion > 0 {
		m.log.WithField("target", targetVersion).Info("rolling back migrations")
		if err := goose.DownToContext(runCtx, m.db.GetConnection(), migrationsDir, targetVersion); err != nil {
			return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
		}
		return nil
	}

	m.log.Info("rolling back latest migration")
	if err := goose.DownContext(runCtx, m.db.GetConnection(), migrationsDir); err != nil {
		return fmt.Errorf("rollback latest migration: %w", err)
	}
	return nil
}
