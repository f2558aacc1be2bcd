package permission

import (
	"context"
	"path/filepath"
	"sync"

	"boardstore/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the granted directory and invalidates the gate when the
// directory is removed or renamed, so the next access re-verifies and falls
// back instead of writing into a vanished path.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	gate    *Gate
	dir     string
	onLost  func(path string)
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for gate. onLost, if set, runs after each
// invalidation.
func NewWatcher(gate *Gate, onLost func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher: fw,
		gate:    gate,
		onLost:  onLost,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Watch retargets the watcher at dir. An empty dir stops watching.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if dir != "" {
		dir = filepath.Clean(dir)
	}
	if dir == w.dir {
		return nil
	}
	if w.dir != "" {
		// The old directory may already be gone, which removes the watch.
		_ = w.watcher.Remove(w.dir)
	}
	w.dir = ""
	if dir == "" {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.dir = dir
	logging.Watcher("Watching storage folder %s", dir)
	return nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Start runs the event loop in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run(ctx)
}

// Stop ends the event loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatcher).Error("Error closing watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatcher).Error("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	dir := w.dir
	lost := dir != "" && filepath.Clean(event.Name) == dir
	if lost {
		w.dir = ""
	}
	w.mu.Unlock()

	if !lost {
		return
	}

	logging.Watcher("Storage folder %s disappeared (%s)", dir, event.Op)
	w.gate.Invalidate()
	if w.onLost != nil {
		w.onLost(dir)
	}
}
