package permission_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"boardstore/internal/permission"
	"boardstore/internal/storeerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixedPicker(path string) permission.Picker {
	return func(context.Context) (string, error) { return path, nil }
}

func TestLocalPlatform_Supported(t *testing.T) {
	assert.False(t, permission.NewLocalPlatform(nil, nil).Supported())
	assert.True(t, permission.NewLocalPlatform(fixedPicker("."), nil).Supported())

	_, err := permission.NewLocalPlatform(nil, nil).Pick(context.Background())
	assert.ErrorIs(t, err, storeerr.ErrCapabilityUnavailable)
}

func TestLocalPlatform_Pick(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	got, err := permission.NewLocalPlatform(fixedPicker(dir), nil).Pick(ctx)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = permission.NewLocalPlatform(fixedPicker(filepath.Join(dir, "missing")), nil).Pick(ctx)
	assert.ErrorIs(t, err, storeerr.ErrNotFound)

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = permission.NewLocalPlatform(fixedPicker(file), nil).Pick(ctx)
	assert.Error(t, err)

	canceled := errors.New("canceled")
	_, err = permission.NewLocalPlatform(func(context.Context) (string, error) { return "", canceled }, nil).Pick(ctx)
	assert.ErrorIs(t, err, canceled)
}

func TestLocalPlatform_QueryAndRequest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tok := permission.NewToken(dir)

	var prompts atomic.Int32
	p := permission.NewLocalPlatform(fixedPicker(dir), func(context.Context, string) (bool, error) {
		prompts.Add(1)
		return true, nil
	})

	st, err := p.Query(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, permission.Granted, st)

	st, err = p.Request(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, permission.Granted, st)
	assert.Equal(t, int32(0), prompts.Load(), "already granted needs no prompt")

	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	st, err = p.Query(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, permission.Denied, st)

	st, err = p.Request(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, permission.Denied, st)
	assert.Equal(t, int32(1), prompts.Load())

	st, err = p.Query(ctx, permission.NewToken(filepath.Join(dir, "gone")))
	require.NoError(t, err)
	assert.Equal(t, permission.Denied, st)
}

func TestLocalPlatform_Open(t *testing.T) {
	dir := t.TempDir()
	p := permission.NewLocalPlatform(fixedPicker(dir), nil)

	fs, err := p.Open(permission.NewToken(dir))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`1`), 0o644))

	f, err := fs.Open("a.json")
	require.NoError(t, err)
	f.Close()
}

func TestWatcher_InvalidatesOnRemoval(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "boards")
	require.NoError(t, os.Mkdir(dir, 0o755))

	g := newGate(permission.NewLocalPlatform(fixedPicker(dir), nil), newMemSettings())
	require.True(t, g.PickDirectory(ctx, permission.NewGesture()))

	var lost atomic.Value
	w, err := permission.NewWatcher(g, func(path string) { lost.Store(path) })
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Watch(dir))
	w.Start(ctx)
	assert.Equal(t, dir, w.Dir())

	require.NoError(t, os.RemoveAll(dir))

	assert.Eventually(t, func() bool {
		return lost.Load() == dir
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "", w.Dir())

	_, ok := g.Directory(ctx)
	assert.False(t, ok)
	assert.Equal(t, permission.Denied, g.State())
}

func TestWatcher_Rename(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "boards")
	require.NoError(t, os.Mkdir(dir, 0o755))

	g := newGate(permission.NewLocalPlatform(fixedPicker(dir), nil), newMemSettings())
	require.True(t, g.PickDirectory(ctx, permission.NewGesture()))

	lost := make(chan string, 1)
	w, err := permission.NewWatcher(g, func(path string) { lost <- path })
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Watch(dir))
	w.Start(ctx)

	require.NoError(t, os.Rename(dir, filepath.Join(root, "moved")))

	select {
	case got := <-lost:
		assert.Equal(t, dir, got)
	case <-time.After(2 * time.Second):
		t.Fatal("rename of the storage folder was not detected")
	}
}

func TestWatcher_IgnoresChildEvents(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	g := newGate(permission.NewLocalPlatform(fixedPicker(dir), nil), newMemSettings())
	require.True(t, g.PickDirectory(ctx, permission.NewGesture()))

	var calls atomic.Int32
	w, err := permission.NewWatcher(g, func(string) { calls.Add(1) })
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Watch(dir))
	w.Start(ctx)

	child := filepath.Join(dir, "wb_boards.json")
	require.NoError(t, os.WriteFile(child, []byte(`[]`), 0o644))
	require.NoError(t, os.Remove(child))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, permission.Granted, g.State())
	assert.Equal(t, dir, w.Dir())
}

func TestWatcher_Retarget(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	w, err := permission.NewWatcher(newGate(nil, nil), nil)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Watch(a))
	require.NoError(t, w.Watch(a))
	require.NoError(t, w.Watch(b))
	assert.Equal(t, b, w.Dir())
	require.NoError(t, w.Watch(""))
	assert.Equal(t, "", w.Dir())

	assert.Error(t, w.Watch(filepath.Join(a, "missing")))
}
