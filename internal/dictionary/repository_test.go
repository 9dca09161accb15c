package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/dictcache/internal/database"
	"github.com/at-ishikawa/dictcache/schemas"
)

var (
	selectSnapshotQuery = regexp.QuoteMeta("SELECT name, payload, updated_at FROM dictionary_snapshots WHERE name = ?")
	replaceSnapshotExec = regexp.QuoteMeta("REPLACE INTO dictionary_snapshots (name, payload, updated_at) VALUES (?, ?, ?)")
	deleteSnapshotExec  = regexp.QuoteMeta("DELETE FROM dictionary_snapshots WHERE name = ?")
	snapshotColumns     = []string{"name", "payload", "updated_at"}
)

func newMockRepository(t *testing.T) (*DBSnapshotRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	repo := NewDBSnapshotRepository(sqlx.NewDb(db, "mysql"), "")
	repo.now = func() time.Time {
		return time.UnixMilli(1700000000000)
	}
	return repo, mock
}

func TestDBSnapshotRepository_Load(t *testing.T) {
	fetchedAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	blob, err := json.Marshal(Snapshot{
		Dictionaries: map[string]Record{
			"GENDER": {DictionaryCode: "GENDER", Entries: genderEntries, FetchedAt: fetchedAt},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name           string
		setupMock      func(mock sqlmock.Sqlmock)
		wantNil        bool
		wantCodes      []string
		wantCheckpoint int64
		wantErr        bool
	}{
		{
			name: "nothing saved yet",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache").
					WillReturnRows(sqlmock.NewRows(snapshotColumns))
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache-last-sync").
					WillReturnRows(sqlmock.NewRows(snapshotColumns))
			},
			wantNil: true,
		},
		{
			name: "blob and checkpoint",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache").
					WillReturnRows(sqlmock.NewRows(snapshotColumns).AddRow("dict-cache", string(blob), int64(1)))
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache-last-sync").
					WillReturnRows(sqlmock.NewRows(snapshotColumns).AddRow("dict-cache-last-sync", "1699999990000", int64(1)))
			},
			wantCodes:      []string{"GENDER"},
			wantCheckpoint: 1699999990000,
		},
		{
			name: "blob without checkpoint",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache").
					WillReturnRows(sqlmock.NewRows(snapshotColumns).AddRow("dict-cache", string(blob), int64(1)))
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache-last-sync").
					WillReturnRows(sqlmock.NewRows(snapshotColumns))
			},
			wantCodes: []string{"GENDER"},
		},
		{
			name: "broken blob",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache").
					WillReturnRows(sqlmock.NewRows(snapshotColumns).AddRow("dict-cache", "{", int64(1)))
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache-last-sync").
					WillReturnRows(sqlmock.NewRows(snapshotColumns))
			},
			wantErr: true,
		},
		{
			name: "broken checkpoint",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache").
					WillReturnRows(sqlmock.NewRows(snapshotColumns))
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache-last-sync").
					WillReturnRows(sqlmock.NewRows(snapshotColumns).AddRow("dict-cache-last-sync", "yesterday", int64(1)))
			},
			wantErr: true,
		},
		{
			name: "query error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectSnapshotQuery).WithArgs("dict-cache").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setupMock(mock)

			got, err := repo.Load(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			for _, code := range tt.wantCodes {
				require.Contains(t, got.Dictionaries, code)
				assert.Equal(t, genderEntries, got.Dictionaries[code].Entries)
				assert.True(t, fetchedAt.Equal(got.Dictionaries[code].FetchedAt))
			}
			if tt.wantCheckpoint == 0 {
				assert.Nil(t, got.Checkpoint)
				return
			}
			require.NotNil(t, got.Checkpoint)
			assert.Equal(t, tt.wantCheckpoint, got.Checkpoint.UnixMilli())
		})
	}
}

func TestDBSnapshotRepository_Save(t *testing.T) {
	checkpoint := time.UnixMilli(1699999990000)

	tests := []struct {
		name      string
		snapshot  Snapshot
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name:     "blob and checkpoint",
			snapshot: Snapshot{Checkpoint: &checkpoint},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(replaceSnapshotExec).
					WithArgs("dict-cache", `{"dictionaries":null,"dictCache":null}`, int64(1700000000000)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(replaceSnapshotExec).
					WithArgs("dict-cache-last-sync", "1699999990000", int64(1700000000000)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name:     "no checkpoint removes the stored one",
			snapshot: Snapshot{Dictionaries: map[string]Record{}},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(replaceSnapshotExec).
					WithArgs("dict-cache", `{"dictionaries":{},"dictCache":null}`, int64(1700000000000)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(deleteSnapshotExec).
					WithArgs("dict-cache-last-sync").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
			},
		},
		{
			name:     "write failure rolls back",
			snapshot: Snapshot{Checkpoint: &checkpoint},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(replaceSnapshotExec).
					WithArgs("dict-cache", sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name:     "begin failure",
			snapshot: Snapshot{},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setupMock(mock)

			err := repo.Save(context.Background(), tt.snapshot)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBSnapshotRepository_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Migrate(ctx, db, schemas.Migrations, "migrations"))

	repo := NewDBSnapshotRepository(db, "research-dicts")

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	fetchedAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	checkpoint := fetchedAt.Add(-time.Minute)
	saved := Snapshot{
		Dictionaries: map[string]Record{
			"GENDER": {DictionaryCode: "GENDER", Entries: genderEntries, FetchedAt: fetchedAt},
		},
		Checkpoint: &checkpoint,
	}
	require.NoError(t, repo.Save(ctx, saved))
	// Saving twice overwrites the rows.
	require.NoError(t, repo.Save(ctx, saved))

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, genderEntries, got.Dictionaries["GENDER"].Entries)
	require.NotNil(t, got.Checkpoint)
	assert.Equal(t, checkpoint.UnixMilli(), got.Checkpoint.UnixMilli())

	saved.Checkpoint = nil
	require.NoError(t, repo.Save(ctx, saved))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Checkpoint)

	var rows int
	require.NoError(t, db.Get(&rows, "SELECT COUNT(*) FROM dictionary_snapshots"))
	assert.Equal(t, 1, rows)
}
