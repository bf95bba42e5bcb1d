package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// The accounts and tasks databases are independent datasets; each carries its
// own schema_migrations table and its own migration list. Migrations are
// additive only and run once at startup, so re-running on every boot is safe.

type migration struct {
	version int
	stmts   []string
}

var accountMigrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				username TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL
			)`,
		},
	},
	{
		// Older deployments predate display names and recovery answers.
		version: 2,
		stmts: []string{
			`ALTER TABLE users ADD COLUMN IF NOT EXISTS name TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE users ADD COLUMN IF NOT EXISTS security TEXT NOT NULL DEFAULT ''`,
		},
	},
}

var taskMigrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS tasks (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				due_date TEXT NOT NULL DEFAULT '',
				due_time TEXT NOT NULL DEFAULT '',
				priority TEXT NOT NULL DEFAULT 'Low',
				done BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TEXT NOT NULL DEFAULT ''
			)`,
		},
	},
	{
		version: 2,
		stmts: []string{
			`ALTER TABLE tasks ADD COLUMN IF NOT EXISTS list_id UUID`,
		},
	},
	{
		version: 3,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS lists (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL,
				name TEXT NOT NULL,
				collaborative BOOLEAN NOT NULL DEFAULT TRUE
			)`,
			`CREATE TABLE IF NOT EXISTS list_members (
				list_id UUID NOT NULL,
				user_id UUID NOT NULL,
				PRIMARY KEY (list_id, user_id)
			)`,
		},
	},
}

// MigrateAccounts brings the accounts database up to the current schema.
func MigrateAccounts(ctx context.Context, pool *pgxpool.Pool) error {
	return migrate(ctx, pool, accountMigrations)
}

// MigrateTasks brings the tasks database up to the current schema.
func MigrateTasks(ctx context.Context, pool *pgxpool.Pool) error {
	return migrate(ctx, pool, taskMigrations)
}

func migrate(ctx context.Context, pool *pgxpool.Pool, migrations []migration) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("migration %d: %w", m.version, err)
			}
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
		log.WithField("version", m.version).Info("applied migration")
	}

	return nil
}
