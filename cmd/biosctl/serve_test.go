package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "install"}
	for _, name := range []string{"tool", "work-dir", "database", "log-level", "listen"} {
		cmd.Flags().String(name, "", "")
	}
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestServiceArgs(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	prev := cfgFile
	t.Cleanup(func() { cfgFile = prev })

	t.Run("defaults", func(t *testing.T) {
		cfgFile = ""
		args, err := serviceArgs(installFlags(t))
		require.NoError(t, err)
		assert.Equal(t, []string{"serve"}, args)
	})

	t.Run("relative paths become absolute", func(t *testing.T) {
		cfgFile = filepath.Join("configs", "biosctl.yaml")
		args, err := serviceArgs(installFlags(t,
			"--tool", "SCEWIN_64.exe",
			"--work-dir", "bios",
			"--database", filepath.Join("data", "biosctl.db"),
			"--log-level", "debug",
			"--listen", "127.0.0.1:9560",
		))
		require.NoError(t, err)
		assert.Equal(t, []string{
			"serve",
			"--config", filepath.Join(dir, "configs", "biosctl.yaml"),
			"--tool", "SCEWIN_64.exe",
			"--work-dir", filepath.Join(dir, "bios"),
			"--database", filepath.Join(dir, "data", "biosctl.db"),
			"--log-level", "debug",
			"--listen", "127.0.0.1:9560",
		}, args)
	})

	t.Run("tool with directory", func(t *testing.T) {
		cfgFile = ""
		args, err := serviceArgs(installFlags(t, "--tool", filepath.Join("tools", "SCEWIN_64.exe")))
		require.NoError(t, err)
		assert.Equal(t, []string{"serve", "--tool", filepath.Join(dir, "tools", "SCEWIN_64.exe")}, args)
	})
}
