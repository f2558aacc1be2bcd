package permission

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"boardstore/internal/storeerr"

	"github.com/spf13/afero"
)

// Picker returns the directory the user chose.
type Picker func(ctx context.Context) (string, error)

// Prompter asks the user to allow access to path.
type Prompter func(ctx context.Context, path string) (bool, error)

// LocalPlatform grants access to directories on the OS filesystem. A
// directory is Granted when it exists and its owner write bit is set.
type LocalPlatform struct {
	picker   Picker
	prompter Prompter
	base     afero.Fs
}

// NewLocalPlatform returns a platform backed by the OS filesystem. A nil
// picker makes the platform unsupported; a nil prompter denies every request
// that a silent query would not already grant.
func NewLocalPlatform(picker Picker, prompter Prompter) *LocalPlatform {
	return &LocalPlatform{picker: picker, prompter: prompter, base: afero.NewOsFs()}
}

func (p *LocalPlatform) Supported() bool {
	return p.picker != nil
}

func (p *LocalPlatform) Pick(ctx context.Context) (string, error) {
	if p.picker == nil {
		return "", storeerr.ErrCapabilityUnavailable
	}
	path, err := p.picker(ctx)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := p.base.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("pick %s: %w", abs, storeerr.Classify(err))
	}
	if !info.IsDir() {
		return "", fmt.Errorf("pick %s: %w: not a directory", abs, storeerr.ErrIO)
	}
	return abs, nil
}

func (p *LocalPlatform) Query(_ context.Context, tok Token) (State, error) {
	info, err := p.base.Stat(tok.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Denied, nil
		}
		return Denied, storeerr.Classify(err)
	}
	if !info.IsDir() || info.Mode().Perm()&0200 == 0 {
		return Denied, nil
	}
	return Granted, nil
}

func (p *LocalPlatform) Request(ctx context.Context, tok Token) (State, error) {
	if st, err := p.Query(ctx, tok); err != nil || st == Granted {
		return st, err
	}
	if p.prompter == nil {
		return Denied, nil
	}
	ok, err := p.prompter(ctx, tok.Path)
	if err != nil {
		return Denied, err
	}
	if !ok {
		return Denied, nil
	}
	// The user agreed; the OS still has the last word.
	return p.Query(ctx, tok)
}

func (p *LocalPlatform) Open(tok Token) (afero.Fs, error) {
	return afero.NewBasePathFs(p.base, tok.Path), nil
}
