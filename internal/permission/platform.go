// Package permission manages access to the user-chosen storage directory:
// the persisted capability token, its tri-state permission, and the user
// gesture that must accompany any prompt.
package permission

import (
	"context"
	"time"

	"boardstore/internal/storeerr"

	"github.com/spf13/afero"
)

// State is the last known permission of the held token.
type State int

const (
	Unchecked State = iota
	Granted
	Denied
)

func (s State) String() string {
	switch s {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "unchecked"
	}
}

// Mode is the backend mode, fixed when the Gate is built.
type Mode int

const (
	// EmbeddedOnly means the platform cannot offer a directory; only the
	// embedded store is used.
	EmbeddedOnly Mode = iota
	DirectoryCapable
)

func (m Mode) String() string {
	if m == DirectoryCapable {
		return "directory"
	}
	return "embedded"
}

// Platform is the OS capability surface.
type Platform interface {
	// Supported reports whether directories can be offered at all.
	Supported() bool
	// Pick shows the folder-selection prompt and returns the chosen path.
	Pick(ctx context.Context) (string, error)
	// Query checks the token's permission without prompting.
	Query(ctx context.Context, tok Token) (State, error)
	// Request prompts for the token's permission.
	Request(ctx context.Context, tok Token) (State, error)
	// Open returns a filesystem rooted at the token's directory.
	Open(tok Token) (afero.Fs, error)
}

// Unsupported is the Platform of hosts without directory access.
type Unsupported struct{}

func (Unsupported) Supported() bool { return false }

func (Unsupported) Pick(context.Context) (string, error) {
	return "", storeerr.ErrCapabilityUnavailable
}

func (Unsupported) Query(context.Context, Token) (State, error) {
	return Denied, storeerr.ErrCapabilityUnavailable
}

func (Unsupported) Request(context.Context, Token) (State, error) {
	return Denied, storeerr.ErrCapabilityUnavailable
}

func (Unsupported) Open(Token) (afero.Fs, error) {
	return nil, storeerr.ErrCapabilityUnavailable
}

// Gesture marks the moment of a user action. Prompting operations accept
// it only within the activation window.
type Gesture struct {
	at time.Time
}

// NewGesture stamps a gesture now.
func NewGesture() Gesture {
	return Gesture{at: time.Now()}
}

// GestureAt stamps a gesture at t.
func GestureAt(t time.Time) Gesture {
	return Gesture{at: t}
}

// Active reports whether the gesture is still usable at now.
func (g Gesture) Active(window time.Duration, now time.Time) bool {
	if g.at.IsZero() || now.Before(g.at) {
		return false
	}
	return now.Sub(g.at) <= window
}
