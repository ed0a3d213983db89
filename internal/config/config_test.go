package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, StorageDurable, cfg.Storage)
	assert.Equal(t, 19420, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Ephemeral.MaxSessions)
	assert.Equal(t, 6, cfg.Scheduler.Ranking.IntervalHours)
}

func TestLoadMergesOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := `{"storage":"ephemeral","server":{"port":9000},"ephemeral":{"max_sessions":10}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(overlay), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, StorageEphemeral, cfg.Storage)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Ephemeral.MaxSessions)
	// Untouched fields keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 50, cfg.Ephemeral.MaxMessagesPerSession)
}

func TestApplyEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("YOLOG_SERVER_PORT", "7777")
	t.Setenv("YOLOG_DATA_DIR", "/tmp/custom-yolog")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "/tmp/custom-yolog", cfg.DataDir)
}

func TestWriteDefaultFailsIfExists(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteDefault(dir)
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = WriteDefault(dir)
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestAIConfigEnabled(t *testing.T) {
	var ai AIConfig
	assert.False(t, ai.Enabled())
	ai.MemoryExtraction = true
	assert.True(t, ai.Enabled())
}
