// Package syncer copies every known key into a newly granted directory.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"boardstore/internal/keys"
	"boardstore/internal/logging"
	"boardstore/internal/storeerr"
	"boardstore/internal/tiered"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Source is the slice of tiered.Store the engine reads and writes through.
type Source interface {
	Peek(key string) (json.RawMessage, bool)
	Lookup(ctx context.Context, key string) (json.RawMessage, bool)
	Save(ctx context.Context, key string, raw json.RawMessage) tiered.Result
}

// Report summarizes one bulk sync.
type Report struct {
	Planned  int
	Synced   int
	Skipped  int
	Failed   []string
	Duration time.Duration
}

// Engine runs bulk syncs.
type Engine struct {
	source      Source
	catalog     *keys.Catalog
	concurrency int
}

// New creates an engine. concurrency < 1 means 1.
func New(source Source, catalog *keys.Catalog, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{source: source, catalog: catalog, concurrency: concurrency}
}

func (e *Engine) value(ctx context.Context, key string) (json.RawMessage, bool) {
	if raw, ok := e.source.Peek(key); ok {
		return raw, true
	}
	return e.source.Lookup(ctx, key)
}

// Plan lists the keys a bulk sync copies: the fixed metadata keys, then a
// content key for every entry of the index.
func (e *Engine) Plan(ctx context.Context) []string {
	seen := make(map[string]bool)
	var plan []string
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			plan = append(plan, k)
		}
	}

	for _, k := range e.catalog.MetaKeys {
		add(k)
	}
	if e.catalog.IndexKey != "" {
		add(e.catalog.IndexKey)
		if index, ok := e.value(ctx, e.catalog.IndexKey); ok {
			for _, k := range e.catalog.ContentKeys(index) {
				add(k)
			}
		}
	}
	return plan
}

// BulkSync saves every planned key that has a value through the normal save
// path. A key whose directory write fails is recorded and the rest continue.
// The returned error aggregates the per-key failures.
func (e *Engine) BulkSync(ctx context.Context) (Report, error) {
	start := time.Now()
	plan := e.Plan(ctx)
	report := Report{Planned: len(plan)}

	logging.SyncInfo("Bulk sync of %d keys (concurrency %d)", len(plan), e.concurrency)

	var (
		mu     sync.Mutex
		result *multierror.Error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, key := range plan {
		key := key
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, ok := e.value(gctx, key)
			if !ok {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				logging.SyncDebug("Skipping %s: no value", key)
				return nil
			}

			res := e.source.Save(gctx, key, raw)

			mu.Lock()
			defer mu.Unlock()
			if res.DirectoryWritten {
				report.Synced++
				return nil
			}
			err := res.Directory
			if err == nil {
				err = fmt.Errorf("%w: directory unavailable", storeerr.ErrIO)
			}
			report.Failed = append(report.Failed, key)
			result = multierror.Append(result, fmt.Errorf("%s: %w", key, err))
			logging.SyncWarn("Bulk sync of %s failed: %v", key, err)
			return nil
		})
	}

	// Workers only return the context's error.
	waitErr := g.Wait()
	if waitErr != nil {
		result = multierror.Append(result, waitErr)
	}
	report.Duration = time.Since(start)

	logging.Audit(logging.AuditBulkSyncComplete, "",
		"planned", report.Planned, "synced", report.Synced,
		"skipped", report.Skipped, "failed", len(report.Failed))

	return report, result.ErrorOrNil()
}
