package metadb

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"boardstore/internal/config"
	"boardstore/internal/storeerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, driver string, maxBytes int64) Store {
	t.Helper()
	s, err := Open(config.MetadataConfig{
		Driver:      driver,
		Path:        filepath.Join(t.TempDir(), "nested", "meta."+driver),
		MaxBytes:    maxBytes,
		BusyTimeout: "1s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var drivers = []string{"sqlite", "bolt"}

func TestStore_Settings(t *testing.T) {
	ctx := context.Background()
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := openTest(t, driver, 0)
			assert.Equal(t, driver, s.Driver())

			_, err := s.GetSetting(ctx, "folder_handle")
			assert.ErrorIs(t, err, storeerr.ErrNotFound)

			require.NoError(t, s.PutSetting(ctx, "folder_handle", []byte(`{"id":"a"}`)))
			require.NoError(t, s.PutSetting(ctx, "folder_handle", []byte(`{"id":"b"}`)))

			v, err := s.GetSetting(ctx, "folder_handle")
			require.NoError(t, err)
			assert.Equal(t, `{"id":"b"}`, string(v))

			require.NoError(t, s.DeleteSetting(ctx, "folder_handle"))
			require.NoError(t, s.DeleteSetting(ctx, "folder_handle"))
			_, err = s.GetSetting(ctx, "folder_handle")
			assert.ErrorIs(t, err, storeerr.ErrNotFound)
		})
	}
}

func TestStore_Fallback(t *testing.T) {
	ctx := context.Background()
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := openTest(t, driver, 0)

			_, err := s.GetFallback(ctx, "wb_boards")
			assert.ErrorIs(t, err, storeerr.ErrNotFound)

			require.NoError(t, s.PutFallback(ctx, "wb_boards", json.RawMessage(`[{"id":1}]`)))
			require.NoError(t, s.PutFallback(ctx, "wb_content_1", json.RawMessage(`{"elements":[]}`)))

			v, err := s.GetFallback(ctx, "wb_boards")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":1}]`, string(v))

			keys, err := s.FallbackKeys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"wb_boards", "wb_content_1"}, keys)

			require.NoError(t, s.DeleteFallback(ctx, "wb_boards"))
			require.NoError(t, s.DeleteFallback(ctx, "never_written"))
			keys, err = s.FallbackKeys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"wb_content_1"}, keys)
		})
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			cfg := config.MetadataConfig{Driver: driver, Path: filepath.Join(t.TempDir(), "meta.db")}

			s, err := Open(cfg)
			require.NoError(t, err)
			require.NoError(t, s.PutSetting(ctx, "folder_handle", []byte("token")))
			require.NoError(t, s.Close())

			s, err = Open(cfg)
			require.NoError(t, err)
			defer s.Close()

			v, err := s.GetSetting(ctx, "folder_handle")
			require.NoError(t, err)
			assert.Equal(t, "token", string(v))
		})
	}
}

func TestStore_Quota(t *testing.T) {
	ctx := context.Background()
	big := json.RawMessage(fmt.Sprintf("%q", strings.Repeat("x", 256<<10)))

	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := openTest(t, driver, 64<<10)

			require.NoError(t, s.PutFallback(ctx, "small", json.RawMessage(`"ok"`)))

			err := s.PutFallback(ctx, "big", big)
			assert.ErrorIs(t, err, storeerr.ErrQuotaExceeded)

			v, err := s.GetFallback(ctx, "small")
			require.NoError(t, err)
			assert.Equal(t, `"ok"`, string(v))
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(config.MetadataConfig{Driver: "sqlite"})
	assert.Error(t, err)

	_, err = Open(config.MetadataConfig{Driver: "postgres", Path: filepath.Join(t.TempDir(), "x")})
	assert.Error(t, err)

	_, err = Open(config.MetadataConfig{Driver: "bolt", Path: ":memory:"})
	assert.Error(t, err)

	_, err = Open(config.MetadataConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "x"), BusyTimeout: "soon"})
	assert.Error(t, err)
}

func TestOpen_SQLiteMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(config.MetadataConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PutFallback(ctx, "k", json.RawMessage(`true`)))
	v, err := s.GetFallback(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "true", string(v))
}

func TestBolt_CanceledContext(t *testing.T) {
	s := openTest(t, "bolt", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetSetting(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
