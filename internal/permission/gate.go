package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"boardstore/internal/logging"
	"boardstore/internal/storeerr"

	"github.com/spf13/afero"
)

// Settings is the slice of the metadata store the gate persists its token in.
type Settings interface {
	GetSetting(ctx context.Context, name string) ([]byte, error)
	PutSetting(ctx context.Context, name string, value []byte) error
}

// DefaultActivationWindow is how long a gesture stays usable.
const DefaultActivationWindow = 5 * time.Second

// Options tunes a Gate.
type Options struct {
	ActivationWindow time.Duration
	Now              func() time.Time
}

// Gate owns the directory token and its permission state. Every directory
// access goes through Directory, which re-verifies the permission for that
// single call.
type Gate struct {
	platform Platform
	settings Settings
	mode     Mode
	window   time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	token     Token
	hasToken  bool
	state     State
	afterPick func(ctx context.Context)
	onChange  func()
}

// NewGate builds a gate. The backend mode is decided here, once.
func NewGate(platform Platform, settings Settings, opts Options) *Gate {
	if platform == nil {
		platform = Unsupported{}
	}
	g := &Gate{
		platform: platform,
		settings: settings,
		window:   opts.ActivationWindow,
		now:      opts.Now,
		mode:     EmbeddedOnly,
	}
	if g.window <= 0 {
		g.window = DefaultActivationWindow
	}
	if g.now == nil {
		g.now = time.Now
	}
	if platform.Supported() {
		g.mode = DirectoryCapable
	}
	logging.Audit(logging.AuditModeDetected, "", "mode", g.mode.String())
	return g
}

// DetectCapability reports whether the platform offers directories.
func (g *Gate) DetectCapability() bool {
	return g.mode == DirectoryCapable
}

// Mode returns the backend mode.
func (g *Gate) Mode() Mode { return g.mode }

// State returns the last recorded permission state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Token returns the held token, if any.
func (g *Gate) Token() (Token, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token, g.hasToken
}

// SetAfterPick sets the hook run after a new directory is picked, before the
// change hook.
func (g *Gate) SetAfterPick(fn func(ctx context.Context)) {
	g.mu.Lock()
	g.afterPick = fn
	g.mu.Unlock()
}

// SetOnChange sets the hook run whenever the effective backend changes.
func (g *Gate) SetOnChange(fn func()) {
	g.mu.Lock()
	g.onChange = fn
	g.mu.Unlock()
}

func (g *Gate) fireChange() {
	g.mu.RLock()
	fn := g.onChange
	g.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// record stores st when tok is the held token.
func (g *Gate) record(tok Token, st State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.hasToken && g.token.ID == tok.ID {
		g.state = st
	}
}

// RestoreHandle loads the persisted token without prompting. Its state starts
// Unchecked. A missing or corrupt record yields none.
func (g *Gate) RestoreHandle(ctx context.Context) (Token, bool) {
	if g.mode == EmbeddedOnly || g.settings == nil {
		return Token{}, false
	}
	data, err := g.settings.GetSetting(ctx, SettingName)
	if err != nil {
		if !storeerr.IsNotFound(err) {
			logging.PermissionWarn("Failed to load stored folder token: %v", err)
		}
		return Token{}, false
	}
	tok, err := ParseToken(data)
	if err != nil {
		logging.PermissionWarn("Ignoring stored folder token: %v", err)
		return Token{}, false
	}

	g.mu.Lock()
	g.token, g.hasToken, g.state = tok, true, Unchecked
	g.mu.Unlock()

	logging.Permission("Restored folder token for %s", tok.Path)
	logging.Audit(logging.AuditHandleRestored, "", "path", tok.Path)
	return tok, true
}

// VerifyPermission queries the token's permission silently and records it.
func (g *Gate) VerifyPermission(ctx context.Context, tok Token) bool {
	st, err := g.platform.Query(ctx, tok)
	if err != nil {
		logging.PermissionDebug("Permission query for %s failed: %v", tok.Path, err)
		st = Denied
	}
	g.record(tok, st)
	return st == Granted
}

// RequestPermission prompts for tok. It requires an active gesture. On
// Granted, tok becomes the held token and the change hook runs.
func (g *Gate) RequestPermission(ctx context.Context, gesture Gesture, tok Token) (State, error) {
	if !gesture.Active(g.window, g.now()) {
		return Denied, fmt.Errorf("request permission for %s: %w", tok.Path, storeerr.ErrGestureRequired)
	}

	st, err := g.platform.Request(ctx, tok)
	if err != nil {
		g.record(tok, Denied)
		return Denied, fmt.Errorf("request permission for %s: %w", tok.Path, err)
	}
	logging.Audit(logging.AuditPermissionState, "", "path", tok.Path, "state", st.String())

	if st != Granted {
		g.record(tok, st)
		return st, nil
	}

	g.mu.Lock()
	g.token, g.hasToken, g.state = tok, true, Granted
	g.mu.Unlock()

	logging.Permission("Permission granted for %s", tok.Path)
	g.fireChange()
	return Granted, nil
}

// RequestStoredPermission re-requests permission for the held token.
func (g *Gate) RequestStoredPermission(ctx context.Context, gesture Gesture) bool {
	tok, ok := g.Token()
	if !ok {
		return false
	}
	st, err := g.RequestPermission(ctx, gesture, tok)
	if err != nil {
		logging.PermissionWarn("Stored permission request failed: %v", err)
		return false
	}
	return st == Granted
}

// PickDirectory lets the user choose a new directory. A held but ungranted
// token is re-requested first. On success the token is persisted and the
// after-pick hook runs, then the change hook. Failures leave prior state
// untouched.
func (g *Gate) PickDirectory(ctx context.Context, gesture Gesture) bool {
	if g.mode == EmbeddedOnly {
		logging.PermissionWarn("Folder picker unavailable: %v", storeerr.ErrCapabilityUnavailable)
		return false
	}
	if !gesture.Active(g.window, g.now()) {
		logging.PermissionWarn("Folder picker rejected: %v", storeerr.ErrGestureRequired)
		return false
	}

	if _, ok := g.Token(); ok && g.State() != Granted {
		if g.RequestStoredPermission(ctx, gesture) {
			return true
		}
	}

	path, err := g.platform.Pick(ctx)
	if err != nil {
		logging.PermissionWarn("Folder pick failed: %v", err)
		return false
	}

	tok := NewToken(path)
	data, err := json.Marshal(tok)
	if err != nil {
		logging.PermissionError("Failed to encode folder token: %v", err)
		return false
	}
	if g.settings != nil {
		if err := g.settings.PutSetting(ctx, SettingName, data); err != nil {
			logging.PermissionError("Failed to persist folder token: %v", err)
			return false
		}
	}

	g.mu.Lock()
	g.token, g.hasToken, g.state = tok, true, Granted
	after := g.afterPick
	g.mu.Unlock()

	logging.Permission("Storage folder set to %s", path)
	logging.Audit(logging.AuditFolderPicked, "", "path", path)

	if after != nil {
		after(ctx)
	}
	g.fireChange()
	return true
}

// Directory returns the directory filesystem for one operation, after a
// silent permission check. A denial affects only this call.
func (g *Gate) Directory(ctx context.Context) (afero.Fs, bool) {
	if g.mode == EmbeddedOnly {
		return nil, false
	}
	tok, ok := g.Token()
	if !ok {
		return nil, false
	}
	if !g.VerifyPermission(ctx, tok) {
		return nil, false
	}
	fs, err := g.platform.Open(tok)
	if err != nil {
		logging.PermissionWarn("Failed to open %s: %v", tok.Path, err)
		return nil, false
	}
	return fs, true
}

// Invalidate forgets the recorded state; the next access re-verifies.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	g.state = Unchecked
	path := g.token.Path
	g.mu.Unlock()
	logging.Audit(logging.AuditFolderInvalid, "", "path", path)
}
