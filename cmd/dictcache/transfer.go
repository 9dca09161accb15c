package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/dictcache/internal/config"
	"github.com/at-ishikawa/dictcache/internal/datasync"
	"github.com/at-ishikawa/dictcache/internal/dictionary"
)

func newTransferCommand() *cobra.Command {
	var from, to Backend
	var dryRun bool
	var updateExisting bool

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Copy the persisted dictionaries from one backend to another",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if from == "" || to == "" {
				return errors.New("both --from and --to are required")
			}
			if from == to {
				return fmt.Errorf("cannot transfer the %s backend to itself", from)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sourceConfig := *cfg
			sourceConfig.Persistence.Backend = config.PersistenceBackend(from)
			source, closeSource, err := openRepository(ctx, &sourceConfig)
			if err != nil {
				return fmt.Errorf("open %s backend: %w", from, err)
			}
			defer func() { _ = closeSource() }()

			targetConfig := *cfg
			targetConfig.Persistence.Backend = config.PersistenceBackend(to)
			target, closeTarget, err := openRepository(ctx, &targetConfig)
			if err != nil {
				return fmt.Errorf("open %s backend: %w", to, err)
			}
			defer func() { _ = closeTarget() }()

			out := cmd.OutOrStdout()
			transferer := datasync.NewTransferer(source, target, dictionary.ExpirationPolicy{
				Default:   cfg.Cache.DefaultTTL,
				Overrides: cfg.Cache.Overrides(),
			}, out)
			result, err := transferer.Transfer(ctx, datasync.TransferOptions{
				DryRun:         dryRun,
				UpdateExisting: updateExisting,
			})
			if err != nil {
				return fmt.Errorf("transfer %s to %s: %w", from, to, err)
			}

			fmt.Fprintln(out, "\nTransfer Summary:")
			if dryRun {
				fmt.Fprintln(out, "  (dry-run mode, no changes made)")
			}
			fmt.Fprintf(out, "  Dictionaries:  %d new, %d skipped, %d updated\n", result.DictionariesNew, result.DictionariesSkipped, result.DictionariesUpdated)
			if result.CheckpointCopied {
				fmt.Fprintln(out, "  Checkpoint:    copied")
			}
			return nil
		},
	}

	cmd.Flags().Var(&from, "from", fmt.Sprintf("Backend to read from. Possible values are %v", allBackends()))
	cmd.Flags().Var(&to, "to", fmt.Sprintf("Backend to write to. Possible values are %v", allBackends()))
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview changes without writing the target backend")
	cmd.Flags().BoolVar(&updateExisting, "update-existing", false, "Overwrite dictionaries the target already has")
	return cmd
}
