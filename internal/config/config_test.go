package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.True(t, cfg.SyncEnabled)
	require.Equal(t, 0.7, cfg.MoveDetectionThreshold)
	require.Contains(t, cfg.ExcludePatterns, ".git")
}

func TestLoadLocalOverridesGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, globalConfigDirName), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(home, globalConfigDirName, "config.json"),
		[]byte(`{"sync_enabled": false, "sync_server": "wss://global"}`), 0o644))

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, localControlDir), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, localControlDir, "config.json"),
		[]byte(`{"sync_server": "wss://local"}`), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "wss://local", cfg.SyncServer)
	require.False(t, cfg.SyncEnabled) // inherited from global, not overridden locally
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := &Config{MoveDetectionThreshold: 1.5}
	require.Error(t, cfg.Validate())
}
