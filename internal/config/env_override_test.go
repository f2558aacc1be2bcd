package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Storage(t *testing.T) {
	t.Run("BOARDSTORE_DB sets metadata path", func(t *testing.T) {
		t.Setenv("BOARDSTORE_DB", "/tmp/meta.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/meta.db", cfg.Storage.Metadata.Path)
	})

	t.Run("BOARDSTORE_DB_DRIVER switches driver", func(t *testing.T) {
		t.Setenv("BOARDSTORE_DB_DRIVER", "bolt")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "bolt", cfg.Storage.Metadata.Driver)
	})

	t.Run("BOARDSTORE_DIR preselects folder", func(t *testing.T) {
		t.Setenv("BOARDSTORE_DIR", "/home/me/Boards")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/home/me/Boards", cfg.Storage.Directory.Path)
	})

	t.Run("empty values leave config untouched", func(t *testing.T) {
		t.Setenv("BOARDSTORE_DB", "")
		t.Setenv("BOARDSTORE_DIR", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "data/boardstore.db", cfg.Storage.Metadata.Path)
		assert.Empty(t, cfg.Storage.Directory.Path)
	})
}

func TestEnvOverrides_LogLevelEnablesDebugMode(t *testing.T) {
	t.Setenv("BOARDSTORE_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.DebugMode)
}
