// Package mirror is the synchronous in-process cache that answers reads
// before any I/O tier is consulted.
package mirror

import (
	"fmt"
	"sort"
	"sync"

	"boardstore/internal/storeerr"
)

// Mirror maps keys to JSON bytes under a total byte quota. Key and value
// lengths both count toward the quota. It is safe for concurrent use.
type Mirror struct {
	mu    sync.RWMutex
	data  map[string][]byte
	used  int
	quota int
}

// Stats reports the mirror's occupancy.
type Stats struct {
	Entries int
	Bytes   int
	Quota   int
}

// New creates a mirror. quota <= 0 disables the limit.
func New(quota int) *Mirror {
	return &Mirror{
		data:  make(map[string][]byte),
		quota: quota,
	}
}

func entrySize(key string, value []byte) int {
	return len(key) + len(value)
}

// Get returns a copy of the stored value.
func (m *Mirror) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Set stores a copy of value. When the new entry would exceed the quota the
// previous entry under key is dropped, so the mirror never holds a stale
// value, and ErrQuotaExceeded is returned.
func (m *Mirror) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, had := m.data[key]
	used := m.used
	if had {
		used -= entrySize(key, old)
	}

	size := entrySize(key, value)
	if m.quota > 0 && used+size > m.quota {
		if had {
			delete(m.data, key)
			m.used = used
		}
		return fmt.Errorf("%w: mirror entry %q needs %d bytes, %d of %d in use",
			storeerr.ErrQuotaExceeded, key, size, used, m.quota)
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	m.used = used + size
	return nil
}

// Delete removes key. Missing keys are ignored.
func (m *Mirror) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.data[key]; ok {
		m.used -= entrySize(key, v)
		delete(m.data, key)
	}
}

// Keys returns the stored keys, sorted.
func (m *Mirror) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Stats returns the current occupancy.
func (m *Mirror) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Entries: len(m.data), Bytes: m.used, Quota: m.quota}
}
