// Package tiered unifies the mirror, the user-chosen directory and the
// embedded fallback database behind one key/value contract.
//
// Reads try the directory first, then the fallback, then whatever the mirror
// already held. Writes go to every available tier; the fallback is written
// even when the directory write succeeds.
package tiered

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"boardstore/internal/codec"
	"boardstore/internal/keys"
	"boardstore/internal/logging"
	"boardstore/internal/mirror"
	"boardstore/internal/storeerr"

	"github.com/spf13/afero"
)

// Directory yields the directory filesystem for one operation, or false when
// the directory tier is unavailable right now. *permission.Gate implements it.
type Directory interface {
	Directory(ctx context.Context) (afero.Fs, bool)
}

// Fallback is the slice of the metadata store used as the fallback tier.
type Fallback interface {
	GetFallback(ctx context.Context, key string) (json.RawMessage, error)
	PutFallback(ctx context.Context, key string, value json.RawMessage) error
	DeleteFallback(ctx context.Context, key string) error
}

// WarningFunc receives quota conditions the caller should surface.
type WarningFunc func(key string, err error)

// Options configures a Store.
type Options struct {
	Compressor *codec.Compressor
}

// Store orchestrates the tiers. There is no per-key locking: concurrent
// writes to one key race and the last I/O to finish wins.
type Store struct {
	mirror   *mirror.Mirror
	dir      Directory
	fallback Fallback
	registry *keys.Registry

	content codec.Chain
	meta    codec.Chain
	exts    []string

	wg sync.WaitGroup

	mu        sync.RWMutex
	onWarning WarningFunc
}

// Result reports the outcome of a save per tier.
type Result struct {
	Key string

	Mirror error

	DirectoryAvailable bool
	DirectoryWritten   bool
	Directory          error

	Fallback error
}

// Err returns an error only when the value reached no durable tier.
func (r Result) Err() error {
	if r.DirectoryWritten || r.Fallback == nil {
		return nil
	}
	if r.Directory != nil {
		return fmt.Errorf("save %s: %w", r.Key, errors.Join(r.Directory, r.Fallback))
	}
	return fmt.Errorf("save %s: %w", r.Key, r.Fallback)
}

// New creates a Store. dir may be nil when no directory tier exists.
func New(m *mirror.Mirror, dir Directory, fb Fallback, reg *keys.Registry, opts Options) *Store {
	if reg == nil {
		reg = keys.NewRegistry("")
	}
	s := &Store{
		mirror:   m,
		dir:      dir,
		fallback: fb,
		registry: reg,
		content:  codec.ContentChain(opts.Compressor),
		meta:     codec.MetaChain(),
	}
	seen := make(map[string]bool)
	for _, chain := range []codec.Chain{s.content, s.meta} {
		for _, ext := range chain.Exts() {
			if !seen[ext] {
				seen[ext] = true
				s.exts = append(s.exts, ext)
			}
		}
	}
	return s
}

// OnWarning registers the quota warning callback.
func (s *Store) OnWarning(fn WarningFunc) {
	s.mu.Lock()
	s.onWarning = fn
	s.mu.Unlock()
}

func (s *Store) warn(key string, err error) {
	logging.Audit(logging.AuditQuotaExceeded, key, "error", err.Error())
	s.mu.RLock()
	fn := s.onWarning
	s.mu.RUnlock()
	if fn != nil {
		fn(key, err)
	}
}

func (s *Store) chain(key string) codec.Chain {
	if s.registry.Resolve(key) == keys.Content {
		return s.content
	}
	return s.meta
}

func (s *Store) directory(ctx context.Context) (afero.Fs, bool) {
	if s.dir == nil {
		return nil, false
	}
	return s.dir.Directory(ctx)
}

// Peek reads the mirror only.
func (s *Store) Peek(key string) (json.RawMessage, bool) {
	v, ok := s.mirror.Get(key)
	if !ok {
		return nil, false
	}
	return json.RawMessage(v), true
}

// Get returns the value of key decoded into a generic Go value, or
// defaultValue. It never fails.
func (s *Store) Get(ctx context.Context, key string, defaultValue any) any {
	raw, ok := s.Lookup(ctx, key)
	if !ok {
		return defaultValue
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		logging.StoreWarn("Undecodable value for %s: %v", key, err)
		return defaultValue
	}
	return v
}

// Lookup returns the raw JSON of key. The directory wins over the fallback;
// if neither has it, the mirror's prior value is returned as-is.
func (s *Store) Lookup(ctx context.Context, key string) (json.RawMessage, bool) {
	candidate, hasCandidate := s.Peek(key)

	if fs, ok := s.directory(ctx); ok {
		if raw, found := s.readDirectory(ctx, fs, key); found {
			s.syncMirror(key, raw)
			return raw, true
		}
	}

	if s.fallback != nil {
		raw, err := s.fallback.GetFallback(ctx, key)
		switch {
		case err == nil:
			canon, cerr := codec.Canonical(raw)
			if cerr != nil {
				logging.StoreWarn("Fallback value for %s is corrupt: %v", key, cerr)
				break
			}
			s.syncMirror(key, canon)
			logging.Audit(logging.AuditFallbackRead, key)
			return canon, true
		case !storeerr.IsNotFound(err):
			logging.StoreWarn("Fallback read for %s failed: %v", key, err)
		}
	}

	return candidate, hasCandidate
}

// readDirectory walks the key's format chain. A miss moves to the next
// format; any other failure abandons the directory tier for this read.
func (s *Store) readDirectory(ctx context.Context, fs afero.Fs, key string) (json.RawMessage, bool) {
	chain := s.chain(key)
	for i, f := range chain {
		name := key + f.Ext()
		data, err := afero.ReadFile(fs, name)
		if err != nil {
			if storeerr.IsNotFound(err) {
				continue
			}
			logging.StoreWarn("Directory read of %s failed: %v", name, storeerr.Classify(err))
			return nil, false
		}
		raw, err := f.Decode(data)
		if err != nil {
			logging.CodecWarn("Cannot decode %s: %v", name, err)
			return nil, false
		}
		if chain.Legacy(i) {
			s.migrate(ctx, key, f, raw)
		}
		return raw, true
	}
	return nil, false
}

// migrate re-saves a legacy-format value in the current format in the
// background. Failures are ignored; the next read simply migrates again.
func (s *Store) migrate(ctx context.Context, key string, from codec.Format, raw json.RawMessage) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := s.Save(ctx, key, raw)
		if res.DirectoryWritten {
			logging.Audit(logging.AuditMigrated, key, "from", from.Name(), "to", s.chain(key).Current().Name())
		}
	}()
}

// Wait blocks until background migrations finish.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) syncMirror(key string, raw json.RawMessage) {
	if err := s.mirror.Set(key, raw); err != nil {
		logging.StoreDebug("Mirror not updated for %s: %v", key, err)
	}
}

// Set serializes value and saves it to every tier. It fails only when the
// value cannot be serialized or reached no durable tier.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Save(ctx, key, raw).Err()
}

// Save writes raw JSON to the mirror, then the directory if available, then
// always the fallback.
func (s *Store) Save(ctx context.Context, key string, raw json.RawMessage) Result {
	res := Result{Key: key}

	canon, err := codec.Canonical(raw)
	if err != nil {
		res.Fallback = err
		return res
	}

	if err := s.mirror.Set(key, canon); err != nil {
		res.Mirror = err
		logging.StoreWarn("Mirror quota exceeded for %s: %v", key, err)
		s.warn(key, err)
	}

	if fs, ok := s.directory(ctx); ok {
		res.DirectoryAvailable = true
		if err := s.writeDirectory(fs, key, canon); err != nil {
			res.Directory = err
			logging.StoreWarn("Directory write of %s failed: %v", key, err)
		} else {
			res.DirectoryWritten = true
		}
	}

	if s.fallback == nil {
		res.Fallback = fmt.Errorf("%w: no fallback store", storeerr.ErrIO)
	} else if err := s.fallback.PutFallback(ctx, key, canon); err != nil {
		res.Fallback = err
		if errors.Is(err, storeerr.ErrQuotaExceeded) {
			s.warn(key, err)
		}
		logging.StoreWarn("Fallback write of %s failed: %v", key, err)
	}

	return res
}

// Remove deletes key from every tier and every directory format. Missing
// entries are ignored.
func (s *Store) Remove(ctx context.Context, key string) {
	s.mirror.Delete(key)

	if fs, ok := s.directory(ctx); ok {
		for _, ext := range s.exts {
			if err := fs.Remove(key + ext); err != nil && !storeerr.IsNotFound(err) {
				logging.StoreWarn("Directory remove of %s%s failed: %v", key, ext, err)
			}
		}
	}

	if s.fallback != nil {
		if err := s.fallback.DeleteFallback(ctx, key); err != nil && !storeerr.IsNotFound(err) {
			logging.StoreWarn("Fallback remove of %s failed: %v", key, err)
		}
	}
}
