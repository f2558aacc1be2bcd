// Package persist is the storage facade the application talks to. A Manager
// is an explicit service instance owned by the application root.
package persist

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"boardstore/internal/codec"
	"boardstore/internal/config"
	"boardstore/internal/keys"
	"boardstore/internal/logging"
	"boardstore/internal/metadb"
	"boardstore/internal/mirror"
	"boardstore/internal/permission"
	"boardstore/internal/syncer"
	"boardstore/internal/tiered"
)

// Options carries the collaborators a Manager cannot build from config.
type Options struct {
	// Platform offers the directory capability. Nil means none.
	Platform permission.Platform
	// Now overrides the clock used for gesture checks.
	Now func() time.Time
}

// Manager ties the tiers together and exposes the persistence operations.
type Manager struct {
	cfg      *config.Config
	db       metadb.Store
	catalog  *keys.Catalog
	mirror   *mirror.Mirror
	gate     *permission.Gate
	store    *tiered.Store
	engine   *syncer.Engine
	watcher  *permission.Watcher
	watchCtx context.CancelFunc

	mu          sync.Mutex
	initialized bool
	closed      bool
	onChange    func()
	lastSync    *syncer.Report
}

// New opens the metadata database and assembles the tiers. The directory
// token is not restored until Init.
func New(cfg *config.Config, opts Options) (*Manager, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "persist.New")
	defer timer.Stop()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	sc := cfg.Storage

	compressor, err := codec.NewCompressor(sc.Compression.Level)
	if err != nil {
		return nil, err
	}

	db, err := metadb.Open(sc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	platform := opts.Platform
	if platform == nil || !sc.Directory.Enabled {
		platform = permission.Unsupported{}
	}

	m := &Manager{
		cfg:     cfg,
		db:      db,
		catalog: keys.NewCatalog(sc.Keys),
		mirror:  mirror.New(sc.Mirror.QuotaBytes),
	}
	m.gate = permission.NewGate(platform, db, permission.Options{
		ActivationWindow: cfg.GetActivationWindow(),
		Now:              opts.Now,
	})
	m.store = tiered.New(m.mirror, m.gate, db, m.catalog.Registry, tiered.Options{Compressor: compressor})
	m.engine = syncer.New(m.store, m.catalog, sc.Sync.Concurrency)

	m.gate.SetAfterPick(m.afterPick)
	m.gate.SetOnChange(m.storageChanged)

	logging.Boot("Storage manager ready (mode=%s driver=%s)", m.gate.Mode(), db.Driver())
	return m, nil
}

// Init restores the persisted directory token and checks its permission
// without prompting. Calling it again is a no-op.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("storage manager is closed")
	}
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = true
	m.mu.Unlock()

	if m.cfg.Storage.Directory.Watch && m.gate.Mode() == permission.DirectoryCapable {
		w, err := permission.NewWatcher(m.gate, m.folderLost)
		if err != nil {
			logging.BootWarn("Directory watcher unavailable: %v", err)
		} else {
			wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			m.mu.Lock()
			m.watcher, m.watchCtx = w, cancel
			m.mu.Unlock()
			w.Start(wctx)
		}
	}

	if tok, ok := m.gate.RestoreHandle(ctx); ok {
		if m.gate.VerifyPermission(ctx, tok) {
			logging.Boot("Using storage folder %s", tok.Path)
			m.retarget(tok.Path)
		} else {
			logging.Boot("Storage folder %s needs permission; using embedded store", tok.Path)
		}
	}
	return nil
}

func (m *Manager) afterPick(ctx context.Context) {
	report, err := m.engine.BulkSync(ctx)
	if err != nil {
		logging.SyncWarn("Bulk sync finished with errors: %v", err)
	}
	m.mu.Lock()
	m.lastSync = &report
	m.mu.Unlock()
}

func (m *Manager) storageChanged() {
	if tok, ok := m.gate.Token(); ok && m.gate.State() == permission.Granted {
		m.retarget(tok.Path)
	}
	m.notify()
}

func (m *Manager) folderLost(path string) {
	logging.PermissionWarn("Storage folder %s is gone; using embedded store", path)
	m.notify()
}

func (m *Manager) notify() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *Manager) retarget(path string) {
	m.mu.Lock()
	w := m.watcher
	m.mu.Unlock()
	if w == nil {
		return
	}
	if err := w.Watch(path); err != nil {
		logging.WatcherDebug("Cannot watch %s: %v", path, err)
	}
}

// PickStorageFolder lets the user choose a storage folder. On success every
// known key is copied into it before the change callback runs.
func (m *Manager) PickStorageFolder(ctx context.Context, gesture permission.Gesture) bool {
	return m.gate.PickDirectory(ctx, gesture)
}

// RequestStoredPermission re-requests access to the restored folder.
func (m *Manager) RequestStoredPermission(ctx context.Context, gesture permission.Gesture) bool {
	return m.gate.RequestStoredPermission(ctx, gesture)
}

// SaveItem stores value under key in every available tier.
func (m *Manager) SaveItem(ctx context.Context, key string, value any) error {
	return m.store.Set(ctx, key, value)
}

// GetItem returns the value under key, or defaultValue.
func (m *Manager) GetItem(ctx context.Context, key string, defaultValue any) any {
	return m.store.Get(ctx, key, defaultValue)
}

// RemoveItem deletes key from every tier.
func (m *Manager) RemoveItem(ctx context.Context, key string) {
	m.store.Remove(ctx, key)
}

// CreatePortableBlob compresses value for manual export.
func (m *Manager) CreatePortableBlob(value any) (*codec.Blob, error) {
	return codec.CreatePortableBlob(value)
}

// ReadPortableBlob reads a manually exported backup.
func (m *Manager) ReadPortableBlob(r io.Reader) (any, error) {
	return codec.ReadPortableBlob(r)
}

// SetOnStorageChange registers the callback run when the effective backend
// changes.
func (m *Manager) SetOnStorageChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// OnWarning registers the quota warning callback.
func (m *Manager) OnWarning(fn tiered.WarningFunc) {
	m.store.OnWarning(fn)
}

// BulkSync copies every known key into the current folder.
func (m *Manager) BulkSync(ctx context.Context) (syncer.Report, error) {
	report, err := m.engine.BulkSync(ctx)
	m.mu.Lock()
	m.lastSync = &report
	m.mu.Unlock()
	return report, err
}

// Mode returns the backend mode.
func (m *Manager) Mode() permission.Mode {
	return m.gate.Mode()
}

// Close stops the watcher, waits for background migrations and closes the
// metadata database.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	w, cancel := m.watcher, m.watchCtx
	m.mu.Unlock()

	if w != nil {
		cancel()
		w.Stop()
	}
	m.store.Wait()
	logging.Boot("Storage manager closed")
	return m.db.Close()
}
