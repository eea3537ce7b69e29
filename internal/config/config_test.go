package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "SCEWIN_64.exe", cfg.ToolPath)
	assert.Equal(t, "", cfg.WorkDir)
	assert.Equal(t, time.Duration(0), cfg.ToolTimeout)
	assert.False(t, cfg.SkipBackup)
	assert.Equal(t, "biosctl.db", cfg.DatabasePath)
	assert.Equal(t, 24*time.Hour, cfg.PurgeInterval)
	assert.Equal(t, ":9560", cfg.Listen)
	assert.True(t, cfg.EnableSwagger)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "biosctl.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
tool_path: C:\Tools\AMISCE\SCEWIN_64.exe
work_dir: C:\ProgramData\biosctl
tool_timeout: 90s
retention_days: 30
listen: 127.0.0.1:9560
`), 0o644))
	t.Setenv("BIOSCTL_LOG_LEVEL", "debug")
	t.Setenv("BIOSCTL_SKIP_BACKUP", "true")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, `C:\Tools\AMISCE\SCEWIN_64.exe`, cfg.ToolPath)
	assert.Equal(t, `C:\ProgramData\biosctl`, cfg.WorkDir)
	assert.Equal(t, 90*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, "127.0.0.1:9560", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.SkipBackup)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "golden.txt")

	cfg := &Config{WorkDir: dir, DumpFile: "out.txt", BackupFile: abs}
	p := cfg.Paths()
	assert.Equal(t, filepath.Join(dir, "out.txt"), p.Dump)
	assert.Equal(t, filepath.Join(dir, "bios_set.txt"), p.Script)
	assert.Equal(t, abs, p.Backup)
}
