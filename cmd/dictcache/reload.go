package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/dictcache/internal/cli"
)

func newReloadCommand() *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Discard the cache and load every dictionary again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cache, closeCache, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			printer := cli.NewDictionaryPrinter(cmd.OutOrStdout())
			if detach {
				if err := cache.LoadAllDicts(ctx); err != nil {
					printer.Metrics(cache.Metrics())
					return fmt.Errorf("cache.LoadAllDicts > %w", err)
				}
				printer.Metrics(cache.Metrics())
				if err := cache.Wait(ctx); err != nil {
					return fmt.Errorf("cache.Wait > %w", err)
				}
				printer.Metrics(cache.Metrics())
				return nil
			}

			err = cache.LoadAllDictsAndWait(ctx)
			printer.Metrics(cache.Metrics())
			if err != nil {
				return fmt.Errorf("cache.LoadAllDictsAndWait > %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&detach, "detach", false, "Report progress while the batch runs in the background")
	return cmd
}

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Apply the dictionaries changed since the last sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cache, closeCache, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			count := cache.FetchIncremental(ctx)
			checkpoint, ok := cache.Store().Checkpoint()
			cli.NewDictionaryPrinter(cmd.OutOrStdout()).Synced(count, checkpoint, ok)
			return nil
		},
	}
}
