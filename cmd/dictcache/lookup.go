package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/dictcache/internal/cli"
)

func newLookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <code>",
		Short: "Show the entries of a dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]
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

			entries := cache.Fetch(ctx, code)
			cli.NewDictionaryPrinter(cmd.OutOrStdout()).Entries(code, entries)
			return nil
		},
	}
}

func newLabelCommand() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "label <code> <value>",
		Short: "Resolve a dictionary value to its label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, value := args[0], args[1]
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

			var label string
			if remote {
				label, err = cache.RemoteLabel(ctx, code, value)
				if err != nil {
					return fmt.Errorf("cache.RemoteLabel > %w", err)
				}
			} else {
				cache.Fetch(ctx, code)
				label = cache.DictLabel(code, value)
			}
			cli.NewDictionaryPrinter(cmd.OutOrStdout()).Label(code, value, label)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the dictionary service instead of the cache")
	return cmd
}

func newBatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <code>...",
		Short: "Cache several dictionaries in one request",
		Args:  cobra.MinimumNArgs(1),
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

			cache.FetchBatch(ctx, args)
			cli.NewDictionaryPrinter(cmd.OutOrStdout()).Batch(cache.Store(), args)
			return nil
		},
	}
}

