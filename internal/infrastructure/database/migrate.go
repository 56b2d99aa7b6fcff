package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const migrationTable = "schema_migrations"

//go:embed migrations
var migrationFS embed.FS

// Migrate applies the embedded schema for db's dialect. Each file runs at most once,
// inside its own transaction, and is recorded in schema_migrations.
// It returns the names of the files applied by this call.
func Migrate(ctx context.Context, db *sqlx.DB) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	root, err := migrationRoot(db.DriverName())
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
);
`, migrationTable)
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("failed to ensure migration table: %w", err)
	}

	var applied []string
	for _, file := range files {
		done, err := isApplied(ctx, db, file)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", file, err)
		}
		if done {
			continue
		}

		content, err := fs.ReadFile(migrationFS, path.Join(root, file))
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}

		if err := applyOne(ctx, db, file, string(content)); err != nil {
			return applied, err
		}
		applied = append(applied, file)
	}
	return applied, nil
}

func migrationRoot(driver string) (string, error) {
	switch driver {
	case "postgres":
		return "migrations/postgres", nil
	case SQLiteDriver:
		return "migrations/sqlite", nil
	default:
		return "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

func applyOne(ctx context.Context, db *sqlx.DB, name, content string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, content); err != nil {
		return fmt.Errorf("failed to exec migration %s: %w", name, err)
	}
	insert := db.Rebind(fmt.Sprintf(
		"INSERT INTO %s (name, applied_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING", migrationTable,
	))
	if _, err := tx.ExecContext(ctx, insert, name, time.Now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", name, err)
	}
	return nil
}

func isApplied(ctx context.Context, db *sqlx.DB, name string) (bool, error) {
	var count int
	query := db.Rebind(fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE name = ?", migrationTable))
	if err := db.GetContext(ctx, &count, query, name); err != nil {
		return false, err
	}
	return count > 0, nil
}
