package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/dictcache/internal/config"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the SQL backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Persistence.Backend == config.PersistenceBackendFile {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "the file backend has no migrations")
				return err
			}

			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s database is up to date\n", cfg.Persistence.Backend)
			return err
		},
	}
}
