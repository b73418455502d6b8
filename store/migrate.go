package store

import (
	"context"
	"fmt"
	"strings"
)

type migration struct {
	Version     int
	Description string
	Postgres    string
	SQLite      string
}

// migrations is the ordered schema history. Each step is applied once and
// recorded in schema_version.
var migrations = []migration{
	{
		Version:     1,
		Description: "subscriptions and site content",
		Postgres: `
		CREATE TABLE IF NOT EXISTS subscriptions (
			email      TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			author     TEXT NOT NULL DEFAULT '',
			category   TEXT NOT NULL DEFAULT '',
			image_url  TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);
		CREATE TABLE IF NOT EXISTS company_updates (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS job_openings (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			location    TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL DEFAULT '',
			department  TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS gallery (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			hint       TEXT NOT NULL,
			image_url  TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		SQLite: `
		CREATE TABLE IF NOT EXISTS subscriptions (
			email      TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			author     TEXT NOT NULL DEFAULT '',
			category   TEXT NOT NULL DEFAULT '',
			image_url  TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);
		CREATE TABLE IF NOT EXISTS company_updates (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS job_openings (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			location    TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL DEFAULT '',
			department  TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS gallery (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			hint       TEXT NOT NULL,
			image_url  TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	},
}

// SchemaVersion is the version Migrate brings the database to.
func SchemaVersion() int {
	return migrations[len(migrations)-1].Version
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	current, err := s.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		s.logger.Info("Applying migration", "version", m.Version, "description", m.Description)
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		s.logger.Info("Migration applied", "version", m.Version)
	}
	return nil
}

// CurrentVersion returns the highest applied migration, or 0.
func (s *Store) CurrentVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.queryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("query schema version: %w", err)
	}
	return v, nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	script := m.SQLite
	if s.driver == DriverPostgres {
		script = m.Postgres
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration v%d: %w", m.Version, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration v%d: %w", m.Version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO schema_version (version, description) VALUES (?, ?)"),
		m.Version, m.Description); err != nil {
		return fmt.Errorf("record migration v%d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration v%d: %w", m.Version, err)
	}
	return nil
}
