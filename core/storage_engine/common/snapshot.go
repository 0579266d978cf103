package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Flusher makes all cached pages durable in the backing file.
type Flusher interface {
	FlushAllPages() error
}

// SnapshotInfo describes a snapshot written by TakeSnapshot.
type SnapshotInfo struct {
	ID        string
	Path      string
	Bytes     int64
	Checksum  string
	CreatedAt time.Time
}

// TakeSnapshot flushes the pool and copies the database file into dir under a
// fresh snapshot id. The copy is throttled per opts.
func TakeSnapshot(ctx context.Context, pool Flusher, dbPath, dir string, opts CopyOptions, logger *zap.Logger) (*SnapshotInfo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("snapshot")

	if err := pool.FlushAllPages(); err != nil {
		return nil, fmt.Errorf("failed to flush pages before snapshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir %s: %w", dir, err)
	}

	id := uuid.New().String()
	path := filepath.Join(dir, fmt.Sprintf("snapshot-%s.db", id))
	start := time.Now()
	res, err := CopyThrottled(ctx, dbPath, path, opts)
	if err != nil {
		_ = os.Remove(path)
		logger.Error("Snapshot copy failed", zap.String("snapshot_id", id), zap.Error(err))
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}

	info := &SnapshotInfo{
		ID:        id,
		Path:      path,
		Bytes:     res.Bytes,
		Checksum:  res.Checksum,
		CreatedAt: start,
	}
	logger.Info("Snapshot written",
		zap.String("snapshot_id", id),
		zap.String("path", path),
		zap.Int64("bytes", res.Bytes),
		zap.Duration("took", time.Since(start)))
	return info, nil
}
