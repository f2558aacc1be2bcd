// Package permissiontest provides an in-memory permission.Platform for tests.
package permissiontest

import (
	"context"
	"errors"
	"sync"

	"boardstore/internal/permission"
	"boardstore/internal/storeerr"

	"github.com/spf13/afero"
)

// ErrCanceled is returned by Pick when no pick result is queued.
var ErrCanceled = errors.New("picker canceled")

// Platform is a controllable Platform backed by one afero.MemMapFs. Each
// picked path is a directory inside it.
type Platform struct {
	mu sync.Mutex

	Root      afero.Fs
	supported bool
	pickPath  string
	pickErr   error
	states    map[string]permission.State
	onRequest permission.State
	readOnly  map[string]bool

	Picks    int
	Queries  int
	Requests int
}

// New returns a supported platform whose requests grant by default.
func New() *Platform {
	return &Platform{
		Root:      afero.NewMemMapFs(),
		supported: true,
		pickErr:   ErrCanceled,
		states:    make(map[string]permission.State),
		onRequest: permission.Granted,
		readOnly:  make(map[string]bool),
	}
}

// SetSupported toggles Supported.
func (p *Platform) SetSupported(v bool) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.supported = v
	return p
}

// SetPick makes the next picks return path. The directory is created and
// Granted.
func (p *Platform) SetPick(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.Root.MkdirAll(path, 0o755)
	p.pickPath, p.pickErr = path, nil
	p.states[path] = permission.Granted
}

// FailPick makes the next picks fail with err.
func (p *Platform) FailPick(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pickPath, p.pickErr = "", err
}

// SetState sets what Query reports for path.
func (p *Platform) SetState(path string, st permission.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[path] = st
}

// Revoke denies path, as if the user withdrew access outside the app.
func (p *Platform) Revoke(path string) { p.SetState(path, permission.Denied) }

// Grant allows path.
func (p *Platform) Grant(path string) { p.SetState(path, permission.Granted) }

// OnRequest sets the answer to the next prompts.
func (p *Platform) OnRequest(st permission.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRequest = st
}

// SetReadOnly makes writes under path fail with a permission error while
// reads keep working.
func (p *Platform) SetReadOnly(path string, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readOnly[path] = v
}

// Dir returns the filesystem of path for assertions.
func (p *Platform) Dir(path string) afero.Fs {
	return afero.NewBasePathFs(p.Root, path)
}

func (p *Platform) Supported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supported
}

func (p *Platform) Pick(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Picks++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.pickErr != nil {
		return "", p.pickErr
	}
	return p.pickPath, nil
}

func (p *Platform) Query(_ context.Context, tok permission.Token) (permission.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Queries++
	return p.states[tok.Path], nil
}

func (p *Platform) Request(_ context.Context, tok permission.Token) (permission.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests++
	if !p.supported {
		return permission.Denied, storeerr.ErrCapabilityUnavailable
	}
	p.states[tok.Path] = p.onRequest
	return p.onRequest, nil
}

func (p *Platform) Open(tok permission.Token) (afero.Fs, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var fs afero.Fs = afero.NewBasePathFs(p.Root, tok.Path)
	if p.readOnly[tok.Path] {
		fs = afero.NewReadOnlyFs(fs)
	}
	return fs, nil
}
