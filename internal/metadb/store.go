// Package metadb is the embedded metadata database: a settings table that
// holds the persisted directory token and a fallback_data table that holds a
// plain JSON copy of every stored value.
//
// Two drivers are available. "sqlite" (modernc.org/sqlite, pure Go) is the
// default; "bolt" (go.etcd.io/bbolt) stores the same two tables as buckets.
package metadb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"boardstore/internal/config"
	"boardstore/internal/logging"
)

// Table names, shared by both drivers.
const (
	TableSettings = "settings"
	TableFallback = "fallback_data"
)

// Store is the contract both drivers implement. Missing entries are reported
// with storeerr.ErrNotFound; a full database with storeerr.ErrQuotaExceeded.
type Store interface {
	GetSetting(ctx context.Context, name string) ([]byte, error)
	PutSetting(ctx context.Context, name string, value []byte) error
	DeleteSetting(ctx context.Context, name string) error

	GetFallback(ctx context.Context, key string) (json.RawMessage, error)
	PutFallback(ctx context.Context, key string, value json.RawMessage) error
	DeleteFallback(ctx context.Context, key string) error
	FallbackKeys(ctx context.Context) ([]string, error)

	Driver() string
	Close() error
}

// Open opens the store selected by cfg.Driver, creating the database file
// and its parent directory when missing.
func Open(cfg config.MetadataConfig) (Store, error) {
	timer := logging.StartTimer(logging.CategoryMetaDB, "metadb.Open")
	defer timer.Stop()

	if cfg.Path == "" {
		return nil, fmt.Errorf("metadata path is required")
	}
	if !isMemoryPath(cfg.Path) {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create metadata directory: %w", err)
		}
	}

	busy := 5 * time.Second
	if cfg.BusyTimeout != "" {
		d, err := time.ParseDuration(cfg.BusyTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid busy_timeout %q: %w", cfg.BusyTimeout, err)
		}
		busy = d
	}

	logging.MetaDB("Opening %s metadata store at %s", cfg.Driver, cfg.Path)

	switch cfg.Driver {
	case "", "sqlite":
		return openSQLite(cfg.Path, busy, cfg.MaxBytes)
	case "bolt":
		if isMemoryPath(cfg.Path) {
			return nil, fmt.Errorf("bolt driver does not support in-memory databases")
		}
		return openBolt(cfg.Path, busy, cfg.MaxBytes)
	default:
		return nil, fmt.Errorf("unknown metadata driver %q", cfg.Driver)
	}
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}
