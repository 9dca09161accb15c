// Package datasync copies persisted dictionary caches between backends.
package datasync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/at-ishikawa/dictcache/internal/dictionary"
)

// ErrNoSnapshot is returned when the source backend has never been saved to.
var ErrNoSnapshot = errors.New("source has no saved dictionaries")

// TransferResult tracks counts for a transfer.
type TransferResult struct {
	DictionariesNew     int
	DictionariesSkipped int
	DictionariesUpdated int
	CheckpointCopied    bool
}

// TransferOptions controls transfer behavior.
type TransferOptions struct {
	DryRun         bool
	UpdateExisting bool
}

// Transferer merges the snapshot of one repository into another.
type Transferer struct {
	source dictionary.SnapshotRepository
	target dictionary.SnapshotRepository
	policy dictionary.ExpirationPolicy
	writer io.Writer
}

// NewTransferer creates a new Transferer. policy recomputes the expiry of the copied records.
func NewTransferer(source, target dictionary.SnapshotRepository, policy dictionary.ExpirationPolicy, writer io.Writer) *Transferer {
	return &Transferer{
		source: source,
		target: target,
		policy: policy,
		writer: writer,
	}
}

// Transfer copies every dictionary of the source into the target.
// Dictionaries the target already has are kept unless UpdateExisting is set.
// The later of both checkpoints is kept.
func (t *Transferer) Transfer(ctx context.Context, opts TransferOptions) (*TransferResult, error) {
	source, err := t.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("source.Load() > %w", err)
	}
	if source == nil {
		return nil, ErrNoSnapshot
	}

	target, err := t.target.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("target.Load() > %w", err)
	}
	if target == nil {
		target = &dictionary.Snapshot{}
	}

	var result TransferResult
	merged := target.Records()
	sourceRecords := source.Records()
	codes := make([]string, 0, len(sourceRecords))
	for code := range sourceRecords {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		record := sourceRecords[code]
		if _, ok := merged[code]; ok {
			if !opts.UpdateExisting {
				fmt.Fprintf(t.writer, "  [SKIP]  %s\n", code)
				result.DictionariesSkipped++
				continue
			}
			merged[code] = record
			fmt.Fprintf(t.writer, "  [UPDATE]  %s (%d entries)\n", code, len(record.Entries))
			result.DictionariesUpdated++
			continue
		}
		merged[code] = record
		fmt.Fprintf(t.writer, "  [NEW]  %s (%d entries)\n", code, len(record.Entries))
		result.DictionariesNew++
	}

	checkpoint := laterCheckpoint(target.Checkpoint, source.Checkpoint)
	result.CheckpointCopied = checkpoint != target.Checkpoint

	if opts.DryRun {
		return &result, nil
	}
	if err := t.target.Save(ctx, dictionary.NewSnapshot(merged, t.policy, checkpoint)); err != nil {
		return nil, fmt.Errorf("target.Save() > %w", err)
	}
	return &result, nil
}

func laterCheckpoint(current, candidate *time.Time) *time.Time {
	if candidate == nil {
		return current
	}
	if current == nil || candidate.After(*current) {
		return candidate
	}
	return current
}
