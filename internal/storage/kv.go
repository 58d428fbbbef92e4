// Package storage provides the single-key value stores reminders are
// persisted to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/notexe/mediconnect/internal/config"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// KV is a minimal key-value store. Values are opaque bytes; Put replaces
// the whole value.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open returns the backend selected by cfg.Backend. File-based backends live
// under cfg.Dir, which is created if needed.
func Open(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return NewMemory(), nil
	case config.StorageRedis:
		return OpenRedis(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	}

	if cfg.Dir == "" {
		return nil, fmt.Errorf("storage.dir is required for the %s backend", cfg.Backend)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	switch cfg.Backend {
	case config.StorageFile:
		return NewFile(cfg.Dir), nil
	case config.StorageSQLite:
		return OpenSQLite(filepath.Join(cfg.Dir, "reminders.db"))
	case config.StorageBolt:
		return OpenBolt(filepath.Join(cfg.Dir, "reminders.bolt"), "")
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
