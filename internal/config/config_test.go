package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/spacetask/internal/config"
	"github.com/bamsammich/spacetask/internal/conflict"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	configDir := filepath.Join(dir, "spacetask")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.Verify)
	assert.Nil(t, cfg.Queue.Enabled)

	s, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), s)
}

func TestLoad_FullConfig(t *testing.T) {
	writeConfig(t, `
[defaults]
error_mode = "continue"
overwrite_mode = "auto_rename_all"
keep_visible = true
verify = true
tui = true
bwlimit = "50M"

[queue]
enabled = false
pause_on_error = false

[timing]
tick = "20ms"
stats_interval = "1s"
size_timeout = "2s"
exec_grace = "3s"
stall_after = "30s"

[log]
max_size = "16K"
max_lines = 100
`)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Defaults.Verify)
	assert.True(t, *cfg.Defaults.Verify)
	require.NotNil(t, cfg.Defaults.OverwriteMode)
	assert.Equal(t, "auto_rename_all", *cfg.Defaults.OverwriteMode)

	s, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "continue", s.ErrorMode)
	assert.Equal(t, conflict.AutoRenameAll, s.Overwrite)
	assert.True(t, s.KeepVisible)
	assert.True(t, s.TUI)
	assert.Equal(t, int64(50<<20), s.BWLimit)
	assert.False(t, s.QueueEnabled)
	assert.False(t, s.PauseOnError)
	assert.Equal(t, 20*time.Millisecond, s.Tick)
	assert.Equal(t, time.Second, s.StatsInterval)
	assert.Equal(t, 2*time.Second, s.SizeTimeout)
	assert.Equal(t, 3*time.Second, s.ExecGrace)
	assert.Equal(t, 30*time.Second, s.StallAfter)
	assert.Equal(t, int64(16<<10), s.LogMaxSize)
	assert.Equal(t, 100, s.LogMaxLines)
}

func TestLoad_PartialConfig(t *testing.T) {
	writeConfig(t, `
[queue]
pause_on_error = false
`)

	cfg, err := config.Load()
	require.NoError(t, err)
	s, err := cfg.Resolve()
	require.NoError(t, err)

	want := config.Defaults()
	want.PauseOnError = false
	assert.Equal(t, want, s)
}

func TestLoad_InvalidTOML(t *testing.T) {
	writeConfig(t, "invalid [[[")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_UnknownKey(t *testing.T) {
	writeConfig(t, `
[defaults]
workers = 4
`)
	_, err := config.Load()
	assert.ErrorContains(t, err, "defaults.workers")
}

func TestLoad_BadDuration(t *testing.T) {
	writeConfig(t, `
[timing]
tick = "soon"
`)
	_, err := config.Load()
	assert.Error(t, err)
}

func TestResolve_CollectsAllErrors(t *testing.T) {
	bad := "nope"
	size := "lots"
	zero := config.Duration(0)
	cfg := config.Config{
		Defaults: config.DefaultsConfig{ErrorMode: &bad, OverwriteMode: &bad, BWLimit: &size},
		Timing:   config.TimingConfig{Tick: &zero},
	}
	_, err := cfg.Resolve()
	require.Error(t, err)
	assert.ErrorContains(t, err, "defaults.error_mode")
	assert.ErrorContains(t, err, "defaults.overwrite_mode")
	assert.ErrorContains(t, err, "defaults.bwlimit")
	assert.ErrorContains(t, err, "timing.tick")
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/spacetask/config.toml", config.Path())
}
