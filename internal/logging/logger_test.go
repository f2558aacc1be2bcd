package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, cats map[string]bool) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core), cats)
	t.Cleanup(func() { Use(nil, nil) })
	return logs
}

func TestCategoryLoggerName(t *testing.T) {
	logs := observe(t, nil)

	Store("saved %s", "wb_boards")
	PermissionWarn("denied %s", "/boards")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "store", entries[0].LoggerName)
	assert.Equal(t, "saved wb_boards", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "permission", entries[1].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestCategoryToggle(t *testing.T) {
	logs := observe(t, map[string]bool{"store": false, "sync": true})

	Store("hidden")
	SyncInfo("visible")
	Boot("unlisted categories default to enabled")

	assert.False(t, IsCategoryEnabled(CategoryStore))
	assert.True(t, IsCategoryEnabled(CategorySync))
	assert.True(t, IsCategoryEnabled(CategoryBoot))
	assert.Equal(t, 0, logs.FilterLoggerName("store").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("sync").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("boot").Len())
}

func TestDebugModeDisabled(t *testing.T) {
	observe(t, nil)
	require.NoError(t, Setup(Options{DebugMode: false, Level: "debug"}))

	// Nop logger: nothing to observe, but calls must be safe.
	Store("nothing")
	Get(CategoryCodec).Error("still nothing")
}

func TestSetup_WritesFile(t *testing.T) {
	t.Cleanup(func() { Use(nil, nil) })
	path := filepath.Join(t.TempDir(), "boardstore.log")

	require.NoError(t, Setup(Options{DebugMode: true, Level: "info", Format: "json", File: path}))
	Store("to file")
	Sync()

	assert.FileExists(t, path)
}

func TestSetup_BadLevel(t *testing.T) {
	t.Cleanup(func() { Use(nil, nil) })
	err := Setup(Options{DebugMode: true, Level: "loud"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"", zapcore.InfoLevel},
		{"info", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "level %q", tt.in)
	}
}

func TestTimerLogging(t *testing.T) {
	logs := observe(t, nil)

	timer := StartTimer(CategoryMetaDB, "PutFallback")
	elapsed := timer.StopWithThreshold(time.Hour)

	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	entries := logs.FilterLoggerName("metadb").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, "PutFallback completed in")
}

func TestTimerThresholdWarns(t *testing.T) {
	logs := observe(t, nil)

	timer := StartTimer(CategorySync, "BulkSync")
	time.Sleep(2 * time.Millisecond)
	timer.StopWithThreshold(time.Nanosecond)

	entries := logs.FilterLoggerName("sync").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestAudit(t *testing.T) {
	logs := observe(t, nil)

	Audit(AuditMigrated, "wb_content_42", "from", ".json", "to", ".tom")

	entries := logs.FilterLoggerName("audit").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "migrated", ctx["event"])
	assert.Equal(t, "wb_content_42", ctx["key"])
	assert.Equal(t, ".tom", ctx["to"])
}

func TestWith(t *testing.T) {
	logs := observe(t, nil)

	Get(CategoryStore).With("key", "wb_folders").Info("write ok")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "wb_folders", entries[0].ContextMap()["key"])
}
