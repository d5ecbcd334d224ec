// AngelaMos | 2026
// migrate.go

package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed sql/*.sql
var embedded embed.FS

// Files returns the embedded migration scripts rooted at their directory.
func Files() (fs.FS, error) {
	return fs.Sub(embedded, "sql")
}

type Migrator struct {
	provider *goose.Provider
	logger   *slog.Logger
}

func NewMigrator(db *sql.DB, logger *slog.Logger) (*Migrator, error) {
	files, err := Files()
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}

	provider, err := goose.NewProvider(database.DialectPostgres, db, files)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	return &Migrator{provider: provider, logger: logger}, nil
}

func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	for _, r := range results {
		m.logger.Info("migration applied",
			"version", r.Source.Version,
			"file", r.Source.Path,
			"duration", r.Duration,
		)
	}
	return nil
}

func (m *Migrator) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}

	if result != nil {
		m.logger.Info("migration rolled back",
			"version", result.Source.Version,
			"file", result.Source.Path,
		)
	}
	return nil
}

func (m *Migrator) Status(ctx context.Context) error {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("migration status: %w", err)
	}

	for _, s := range statuses {
		m.logger.Info("migration",
			"version", s.Source.Version,
			"file", s.Source.Path,
			"state", s.State,
			"applied_at", s.AppliedAt,
		)
	}
	return nil
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("migration version: %w", err)
	}
	return v, nil
}
