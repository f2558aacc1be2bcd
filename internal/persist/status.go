package persist

import (
	"context"

	"boardstore/internal/mirror"
	"boardstore/internal/syncer"
)

// Status is a snapshot of the manager for diagnostics.
type Status struct {
	Mode         string         `json:"mode"`
	Permission   string         `json:"permission"`
	Folder       string         `json:"folder,omitempty"`
	Watching     string         `json:"watching,omitempty"`
	Driver       string         `json:"driver"`
	Database     string         `json:"database"`
	FallbackKeys int            `json:"fallback_keys"`
	Mirror       mirror.Stats   `json:"mirror"`
	LastSync     *syncer.Report `json:"last_sync,omitempty"`
}

// Status reports the current backend, permission and tier occupancy.
func (m *Manager) Status(ctx context.Context) Status {
	st := Status{
		Mode:       m.gate.Mode().String(),
		Permission: m.gate.State().String(),
		Driver:     m.db.Driver(),
		Database:   m.cfg.Storage.Metadata.Path,
		Mirror:     m.mirror.Stats(),
	}
	if tok, ok := m.gate.Token(); ok {
		st.Folder = tok.Path
	}

	m.mu.Lock()
	if m.watcher != nil {
		st.Watching = m.watcher.Dir()
	}
	if m.lastSync != nil {
		r := *m.lastSync
		st.LastSync = &r
	}
	m.mu.Unlock()

	if keys, err := m.db.FallbackKeys(ctx); err == nil {
		st.FallbackKeys = len(keys)
	}
	return st
}
