package metadb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"boardstore/internal/storeerr"

	bolt "go.etcd.io/bbolt"
)

type boltStore struct {
	db       *bolt.DB
	maxBytes int64
}

func openBolt(path string, timeout time.Duration, maxBytes int64) (*boltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("failed to open database: %w: locked by another process", storeerr.ErrIO)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{TableSettings, TableFallback} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &boltStore{db: db, maxBytes: maxBytes}, nil
}

func (s *boltStore) Driver() string { return "bolt" }

func (s *boltStore) get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if v == nil {
			return fmt.Errorf("%s %q: %w", bucket, key, storeerr.ErrNotFound)
		}
		// v is only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (s *boltStore) put(ctx context.Context, bucket, key string, value []byte, quota int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if quota > 0 {
			used := int64(len(key) + len(value))
			c := b.Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				if string(k) != key {
					used += int64(len(k) + len(v))
				}
			}
			if used > quota {
				return fmt.Errorf("%w: %s needs %d of %d bytes", storeerr.ErrQuotaExceeded, bucket, used, quota)
			}
		}
		if err := b.Put([]byte(key), value); err != nil {
			return fmt.Errorf("%w: %v", storeerr.ErrIO, err)
		}
		return nil
	})
}

func (s *boltStore) delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(key))
	})
}

func (s *boltStore) GetSetting(ctx context.Context, name string) ([]byte, error) {
	return s.get(ctx, TableSettings, name)
}

func (s *boltStore) PutSetting(ctx context.Context, name string, value []byte) error {
	if err := s.put(ctx, TableSettings, name, value, 0); err != nil {
		return fmt.Errorf("failed to store setting %q: %w", name, err)
	}
	return nil
}

func (s *boltStore) DeleteSetting(ctx context.Context, name string) error {
	if err := s.delete(ctx, TableSettings, name); err != nil {
		return fmt.Errorf("failed to delete setting %q: %w", name, err)
	}
	return nil
}

func (s *boltStore) GetFallback(ctx context.Context, key string) (json.RawMessage, error) {
	v, err := s.get(ctx, TableFallback, key)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(v), nil
}

// PutFallback enforces max_bytes over the fallback bucket's key and value
// bytes.
func (s *boltStore) PutFallback(ctx context.Context, key string, value json.RawMessage) error {
	if err := s.put(ctx, TableFallback, key, value, s.maxBytes); err != nil {
		return fmt.Errorf("failed to store fallback %q: %w", key, err)
	}
	return nil
}

func (s *boltStore) DeleteFallback(ctx context.Context, key string) error {
	if err := s.delete(ctx, TableFallback, key); err != nil {
		return fmt.Errorf("failed to delete fallback %q: %w", key, err)
	}
	return nil
}

func (s *boltStore) FallbackKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(TableFallback)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (s *boltStore) Close() error {
	return s.db.Close()
}
