package metadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"boardstore/internal/logging"
	"boardstore/internal/storeerr"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type sqliteStore struct {
	db   *sql.DB
	path string
}

func openSQLite(path string, busy time.Duration, maxBytes int64) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// PRAGMAs are per connection; one connection keeps them in force.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds())); err != nil {
		logging.MetaDBDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.MetaDBDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.MetaDBDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &sqliteStore{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if maxBytes > 0 {
		if err := s.limit(maxBytes); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *sqliteStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			name TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS fallback_data (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create fallback_data table: %w", err)
	}
	return nil
}

// limit caps the database size through max_page_count. SQLite never lowers
// the cap below the pages already in use.
func (s *sqliteStore) limit(maxBytes int64) error {
	var pageSize int64
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return fmt.Errorf("failed to read page_size: %w", err)
	}
	pages := maxBytes / pageSize
	if pages < 1 {
		pages = 1
	}
	var applied int64
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA max_page_count = %d", pages)).Scan(&applied); err != nil {
		return fmt.Errorf("failed to set max_page_count: %w", err)
	}
	logging.MetaDBDebug("sqlite quota: %d pages of %d bytes", applied, pageSize)
	return nil
}

func (s *sqliteStore) Driver() string { return "sqlite" }

func (s *sqliteStore) GetSetting(ctx context.Context, name string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("setting %q: %w", name, storeerr.ErrNotFound)
	}
	if err != nil {
		return nil, classifySQLite(err)
	}
	return value, nil
}

func (s *sqliteStore) PutSetting(ctx context.Context, name string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, name, value)
	if err != nil {
		return fmt.Errorf("failed to store setting %q: %w", name, classifySQLite(err))
	}
	return nil
}

func (s *sqliteStore) DeleteSetting(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete setting %q: %w", name, classifySQLite(err))
	}
	return nil
}

func (s *sqliteStore) GetFallback(ctx context.Context, key string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM fallback_data WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fallback %q: %w", key, storeerr.ErrNotFound)
	}
	if err != nil {
		return nil, classifySQLite(err)
	}
	return json.RawMessage(value), nil
}

func (s *sqliteStore) PutFallback(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fallback_data (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("failed to store fallback %q: %w", key, classifySQLite(err))
	}
	return nil
}

func (s *sqliteStore) DeleteFallback(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM fallback_data WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete fallback %q: %w", key, classifySQLite(err))
	}
	return nil
}

func (s *sqliteStore) FallbackKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM fallback_data ORDER BY key")
	if err != nil {
		return nil, classifySQLite(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, classifySQLite(err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// classifySQLite maps SQLITE_FULL onto ErrQuotaExceeded and everything else
// onto ErrIO.
func classifySQLite(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_FULL {
		return fmt.Errorf("%w: %v", storeerr.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%w: %v", storeerr.ErrIO, err)
}
