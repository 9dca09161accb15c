package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/at-ishikawa/dictcache/internal/config"
	"github.com/at-ishikawa/dictcache/internal/database"
	"github.com/at-ishikawa/dictcache/internal/dictionary"
	"github.com/at-ishikawa/dictcache/internal/dictionary/restapi"
	"github.com/at-ishikawa/dictcache/schemas"
	"github.com/jmoiron/sqlx"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if backend != "" {
		cfg.Persistence.Backend = config.PersistenceBackend(backend)
	}
	return cfg, nil
}

// openDatabase opens and migrates the database of a SQL backend.
func openDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error
	switch cfg.Persistence.Backend {
	case config.PersistenceBackendMySQL:
		db, err = database.Open(cfg.Database)
	case config.PersistenceBackendSQLite:
		db, err = database.OpenSQLite(cfg.Persistence.SQLitePath)
	default:
		return nil, fmt.Errorf("backend %s has no database", cfg.Persistence.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(ctx, db, schemas.Migrations, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database.Migrate > %w", err)
	}
	return db, nil
}

func openRepository(ctx context.Context, cfg *config.Config) (dictionary.SnapshotRepository, func() error, error) {
	if cfg.Persistence.Backend == config.PersistenceBackendFile {
		repository := dictionary.NewYAMLSnapshotRepository(cfg.Persistence.Directory, cfg.Persistence.StorageName)
		return repository, func() error { return nil }, nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return dictionary.NewDBSnapshotRepository(db, cfg.Persistence.StorageName), db.Close, nil
}

// openCache builds a restored Cache from the configuration. The returned function
// saves the cache and releases its resources.
func openCache(ctx context.Context, cfg *config.Config) (*dictionary.Cache, func(), error) {
	repository, closeRepository, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	client := restapi.NewClient(restapi.Config{
		BaseURL:          cfg.Gateway.BaseURL,
		Token:            cfg.Gateway.Token,
		Timeout:          cfg.Gateway.Timeout,
		MaxRetryAttempts: cfg.Gateway.RetryAttempts,
	})
	cache := dictionary.NewCache(client, repository, dictionary.WithExpirationPolicy(dictionary.ExpirationPolicy{
		Default:   cfg.Cache.DefaultTTL,
		Overrides: cfg.Cache.Overrides(),
	}))
	if err := cache.Init(ctx); err != nil {
		slog.Default().Warn("starting with an empty dictionary cache that will not be saved",
			"backend", cfg.Persistence.Backend,
			"error", err,
		)
	}

	closeCache := func() {
		err := errors.Join(
			cache.Close(context.WithoutCancel(ctx)),
			client.Close(),
			closeRepository(),
		)
		if err != nil {
			slog.Default().Error("failed to close the dictionary cache",
				"error", err,
			)
		}
	}
	return cache, closeCache, nil
}
