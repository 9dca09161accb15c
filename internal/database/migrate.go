package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const migrationTable = "schema_migrations"

// Migrate applies every *.sql file under root of migrations at most once, in file name order.
// The statements must be valid for both MySQL and SQLite.
func Migrate(ctx context.Context, db *sqlx.DB, migrations fs.FS, root string) error {
	entries, err := fs.ReadDir(migrations, root)
	if err != nil {
		return fmt.Errorf("fs.ReadDir(%s) > %w", root, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name VARCHAR(191) NOT NULL PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`); err != nil {
		return fmt.Errorf("create %s > %w", migrationTable, err)
	}

	for _, file := range files {
		applied, err := isApplied(ctx, db, file)
		if err != nil {
			return fmt.Errorf("isApplied(%s) > %w", file, err)
		}
		if applied {
			continue
		}

		content, err := fs.ReadFile(migrations, root+"/"+file)
		if err != nil {
			return fmt.Errorf("fs.ReadFile(%s) > %w", file, err)
		}
		upSQL := upMigration(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTxx > %w", err)
		}
		if _, err := tx.ExecContext(ctx, upSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s > %w", file, err)
		}
		if _, err := tx.ExecContext(ctx,
			"REPLACE INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file, time.Now().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s > %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit > %w", err)
		}
		slog.Default().Info("applied migration", "file", file, "driver", db.DriverName())
	}
	return nil
}

// upMigration returns the statements between "-- +migrate Up" and "-- +migrate Down".
func upMigration(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start == -1 {
		start = 0
	} else {
		start += len(up)
	}
	if end := strings.Index(content, down); end >= start {
		return content[start:end]
	}
	return content[start:]
}

func isApplied(ctx context.Context, db *sqlx.DB, name string) (bool, error) {
	var found int
	err := db.GetContext(ctx, &found, "SELECT 1 FROM "+migrationTable+" WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
