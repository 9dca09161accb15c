package dictionary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:generate mockgen -source=repository.go -destination=../mocks/dictionary/mock_repository.go -package=mock_dictionary

// DefaultStorageName is the key of the persisted cache blob.
const DefaultStorageName = "dict-cache"

// SnapshotRepository persists the cache across sessions.
type SnapshotRepository interface {
	// Load returns nil without error when nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}

func checkpointKey(storageName string) string {
	return storageName + "-last-sync"
}

// SnapshotRow is a row of the dictionary_snapshots table.
type SnapshotRow struct {
	Name      string `db:"name"`
	Payload   string `db:"payload"`
	UpdatedAt int64  `db:"updated_at"`
}

// DBSnapshotRepository implements SnapshotRepository on MySQL or SQLite.
type DBSnapshotRepository struct {
	db          *sqlx.DB
	storageName string
	now         func() time.Time
}

// NewDBSnapshotRepository creates a new DBSnapshotRepository.
func NewDBSnapshotRepository(db *sqlx.DB, storageName string) *DBSnapshotRepository {
	if storageName == "" {
		storageName = DefaultStorageName
	}
	return &DBSnapshotRepository{
		db:          db,
		storageName: storageName,
		now:         time.Now,
	}
}

// Load reads the cache blob and the sync checkpoint.
func (r *DBSnapshotRepository) Load(ctx context.Context) (*Snapshot, error) {
	blob, err := r.findByName(ctx, r.storageName)
	if err != nil {
		return nil, err
	}
	checkpoint, err := r.findByName(ctx, checkpointKey(r.storageName))
	if err != nil {
		return nil, err
	}
	if blob == nil && checkpoint == nil {
		return nil, nil
	}

	var snapshot Snapshot
	if blob != nil {
		if err := json.Unmarshal([]byte(blob.Payload), &snapshot); err != nil {
			return nil, fmt.Errorf("json.Unmarshal(%s) > %w", r.storageName, err)
		}
	}
	if checkpoint != nil {
		t, err := parseCheckpoint(checkpoint.Payload)
		if err != nil {
			return nil, err
		}
		snapshot.Checkpoint = &t
	}
	return &snapshot, nil
}

func (r *DBSnapshotRepository) findByName(ctx context.Context, name string) (*SnapshotRow, error) {
	var row SnapshotRow
	err := r.db.GetContext(ctx, &row, "SELECT name, payload, updated_at FROM dictionary_snapshots WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(dictionary_snapshot %s) > %w", name, err)
	}
	return &row, nil
}

// Save writes the cache blob and the checkpoint in one transaction.
func (r *DBSnapshotRepository) Save(ctx context.Context, snapshot Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("json.Marshal > %w", err)
	}
	updatedAt := r.now().UnixMilli()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTxx > %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const upsert = "REPLACE INTO dictionary_snapshots (name, payload, updated_at) VALUES (?, ?, ?)"
	if _, err := tx.ExecContext(ctx, upsert, r.storageName, string(payload), updatedAt); err != nil {
		return fmt.Errorf("tx.ExecContext(replace %s) > %w", r.storageName, err)
	}
	if snapshot.Checkpoint != nil {
		value := formatCheckpoint(*snapshot.Checkpoint)
		if _, err := tx.ExecContext(ctx, upsert, checkpointKey(r.storageName), value, updatedAt); err != nil {
			return fmt.Errorf("tx.ExecContext(replace checkpoint) > %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, "DELETE FROM dictionary_snapshots WHERE name = ?", checkpointKey(r.storageName)); err != nil {
			return fmt.Errorf("tx.ExecContext(delete checkpoint) > %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit > %w", err)
	}
	return nil
}

func formatCheckpoint(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseCheckpoint(value string) (time.Time, error) {
	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("strconv.ParseInt(%s) > %w", value, err)
	}
	return time.UnixMilli(millis), nil
}
