package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LocalStorage keeps prompt snapshots on the local filesystem, one JSONL
// file per snapshot with one prompt document per line
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// Config for local storage
type LocalStorageConfig struct {
	BasePath string // Base directory for snapshots (e.g., "/tmp/prompt-snapshots")
}

// SnapshotMetadata describes a written snapshot file
type SnapshotMetadata struct {
	ID        string
	Path      string
	Records   int
	Size      int64
	Hash      string
	CreatedAt time.Time
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg *LocalStorageConfig, logger *slog.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		logger:   logger,
	}, nil
}

// WriteSnapshot writes the given prompt documents as a JSONL snapshot file
// and returns its metadata, including a sha256 hash of the content
func (s *LocalStorage) WriteSnapshot(ctx context.Context, snapshotID string, docs []map[string]interface{}) (*SnapshotMetadata, error) {
	path := filepath.Join(s.basePath, filepath.Base(snapshotID)+".jsonl")

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer file.Close()

	// Hash while writing
	hash := sha256.New()
	writer := io.MultiWriter(file, hash)

	var size int64
	encoder := json.NewEncoder(writer)
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := encoder.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode snapshot record: %w", err)
		}
	}

	info, err := file.Stat()
	if err == nil {
		size = info.Size()
	}

	metadata := &SnapshotMetadata{
		ID:        snapshotID,
		Path:      path,
		Records:   len(docs),
		Size:      size,
		Hash:      hex.EncodeToString(hash.Sum(nil)),
		CreatedAt: time.Now(),
	}

	s.logger.Info("snapshot written",
		slog.String("snapshot_id", snapshotID),
		slog.Int("records", metadata.Records),
		slog.Int64("size", metadata.Size),
		slog.String("hash", metadata.Hash))

	return metadata, nil
}

// ReadSnapshot reads back the documents of a stored snapshot
func (s *LocalStorage) ReadSnapshot(ctx context.Context, snapshotID string) ([]map[string]interface{}, error) {
	path := filepath.Join(s.basePath, filepath.Base(snapshotID)+".jsonl")

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot not found: %s", snapshotID)
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	var docs []map[string]interface{}
	decoder := json.NewDecoder(file)
	for decoder.More() {
		var doc map[string]interface{}
		if err := decoder.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot record: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// ListSnapshots returns the ids of all stored snapshots, newest first
func (s *LocalStorage) ListSnapshots(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	type snapshot struct {
		id      string
		modTime time.Time
	}

	var snapshots []snapshot
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(".jsonl")]
		snapshots = append(snapshots, snapshot{id: id, modTime: info.ModTime()})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].modTime.After(snapshots[j].modTime)
	})

	ids := make([]string, 0, len(snapshots))
	for _, snap := range snapshots {
		ids = append(ids, snap.id)
	}
	return ids, nil
}

// CleanupOldSnapshots removes snapshot files older than the given duration
func (s *LocalStorage) CleanupOldSnapshots(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.basePath, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn("failed to remove old snapshot",
					slog.String("path", path),
					slog.Any("error", err))
			}
		}
	}

	return nil
}
