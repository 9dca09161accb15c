package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/at-ishikawa/dictcache/internal/config"
	"github.com/at-ishikawa/dictcache/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
	}{
		{
			name: "creates connection with valid config",
			cfg: config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				Database: "testdb",
				Username: "testuser",
				Password: "testpass",
			},
		},
		{
			name: "creates connection with custom port",
			cfg: config.DatabaseConfig{
				Host:     "db.example.com",
				Port:     3307,
				Database: "dictcache",
				Username: "admin",
				Password: "secret",
				TLS:      true,
			},
		},
		{
			name: "creates connection with pool settings",
			cfg: config.DatabaseConfig{
				Host:            "localhost",
				Port:            3306,
				Database:        "testdb",
				Username:        "testuser",
				Password:        "testpass",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 300,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Open(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, got)
			defer got.Close()

			assert.Equal(t, DriverMySQL, got.DriverName())
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "in-memory database",
			path: func(t *testing.T) string { return ":memory:" },
		},
		{
			name: "file in a directory that does not exist yet",
			path: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nested", "dictionaries.db")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := OpenSQLite(tt.path(t))
			require.NoError(t, err)
			defer db.Close()

			assert.Equal(t, DriverSQLite, db.DriverName())
			require.NoError(t, db.Ping())
		})
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	t.Run("embedded migrations create the snapshot table once", func(t *testing.T) {
		db, err := OpenSQLite(":memory:")
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, Migrate(ctx, db, schemas.Migrations, "migrations"))
		require.NoError(t, Migrate(ctx, db, schemas.Migrations, "migrations"))

		var applied int
		require.NoError(t, db.Get(&applied, "SELECT COUNT(*) FROM schema_migrations"))
		assert.Equal(t, 1, applied)

		_, err = db.Exec("INSERT INTO dictionary_snapshots (name, payload, updated_at) VALUES (?, ?, ?)", "dict-cache", "{}", 1)
		require.NoError(t, err)
	})

	t.Run("failed migration is not recorded", func(t *testing.T) {
		db, err := OpenSQLite(":memory:")
		require.NoError(t, err)
		defer db.Close()

		bad := fstest.MapFS{
			"migrations/001_bad.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREAT TABLE things(id INT);")},
		}
		require.Error(t, Migrate(ctx, db, bad, "migrations"))

		var applied int
		require.NoError(t, db.Get(&applied, "SELECT COUNT(*) FROM schema_migrations"))
		assert.Equal(t, 0, applied)
	})

	t.Run("missing directory", func(t *testing.T) {
		db, err := OpenSQLite(":memory:")
		require.NoError(t, err)
		defer db.Close()

		assert.Error(t, Migrate(ctx, db, fstest.MapFS{}, "migrations"))
	})
}

func TestUpMigration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "up and down sections",
			content: "-- +migrate Up\nCREATE TABLE a(id INT);\n-- +migrate Down\nDROP TABLE a;",
			want:    "\nCREATE TABLE a(id INT);\n",
		},
		{
			name:    "no markers",
			content: "CREATE TABLE a(id INT);",
			want:    "CREATE TABLE a(id INT);",
		},
		{
			name:    "only up marker",
			content: "-- +migrate Up\nCREATE TABLE a(id INT);",
			want:    "\nCREATE TABLE a(id INT);",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, upMigration(tt.content))
		})
	}
}
