package dictionary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLSnapshotRepository keeps the cache blob and the checkpoint as two files in a directory.
type YAMLSnapshotRepository struct {
	rootDir     string
	storageName string
}

// NewYAMLSnapshotRepository creates a new YAMLSnapshotRepository.
func NewYAMLSnapshotRepository(directory, storageName string) *YAMLSnapshotRepository {
	if storageName == "" {
		storageName = DefaultStorageName
	}
	return &YAMLSnapshotRepository{
		rootDir:     directory,
		storageName: storageName,
	}
}

func (r *YAMLSnapshotRepository) filePath(name string) string {
	return filepath.Join(r.rootDir, name+".yml")
}

// Load reads the snapshot. Missing files mean nothing was saved.
func (r *YAMLSnapshotRepository) Load(ctx context.Context) (*Snapshot, error) {
	blob, err := r.read(r.filePath(r.storageName))
	if err != nil {
		return nil, fmt.Errorf("r.read(%s) > %w", r.storageName, err)
	}
	checkpoint, err := r.read(r.filePath(checkpointKey(r.storageName)))
	if err != nil {
		return nil, fmt.Errorf("r.read(checkpoint) > %w", err)
	}
	if blob == nil && checkpoint == nil {
		return nil, nil
	}

	var snapshot Snapshot
	if blob != nil {
		if err := yaml.Unmarshal(blob, &snapshot); err != nil {
			return nil, fmt.Errorf("yaml.Unmarshal > %w", err)
		}
	}
	if value := strings.TrimSpace(string(checkpoint)); value != "" {
		t, err := parseCheckpoint(value)
		if err != nil {
			return nil, err
		}
		snapshot.Checkpoint = &t
	}
	return &snapshot, nil
}

// Save overwrites both files.
func (r *YAMLSnapshotRepository) Save(ctx context.Context, snapshot Snapshot) error {
	if err := os.MkdirAll(r.rootDir, 0755); err != nil {
		return fmt.Errorf("os.MkdirAll > %w", err)
	}

	contents, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("yaml.Marshal > %w", err)
	}
	if err := r.write(r.filePath(r.storageName), contents); err != nil {
		return fmt.Errorf("r.write(%s) > %w", r.storageName, err)
	}

	checkpointPath := r.filePath(checkpointKey(r.storageName))
	if snapshot.Checkpoint == nil {
		if err := os.Remove(checkpointPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("os.Remove > %w", err)
		}
		return nil
	}
	if err := r.write(checkpointPath, []byte(formatCheckpoint(*snapshot.Checkpoint))); err != nil {
		return fmt.Errorf("r.write(checkpoint) > %w", err)
	}
	return nil
}

func (r *YAMLSnapshotRepository) read(path string) ([]byte, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.Open > %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	contents, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll > %w", err)
	}
	return contents, nil
}

// write replaces a file through a rename so readers never see a partial file.
func (r *YAMLSnapshotRepository) write(path string, contents []byte) error {
	file, err := os.CreateTemp(r.rootDir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("os.CreateTemp > %w", err)
	}
	tmpPath := file.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := file.Write(contents); err != nil {
		_ = file.Close()
		return fmt.Errorf("file.Write > %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("file.Close > %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("os.Rename > %w", err)
	}
	return nil
}
