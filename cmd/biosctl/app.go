package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-bios/internal/bios"
	"github.com/go-tangra/go-tangra-bios/internal/config"
	"github.com/go-tangra/go-tangra-bios/internal/convert"
	"github.com/go-tangra/go-tangra-bios/internal/logging"
	"github.com/go-tangra/go-tangra-bios/internal/scewin"
	"github.com/go-tangra/go-tangra-bios/internal/store"
	"github.com/go-tangra/go-tangra-bios/internal/winhost"
)

// app carries what every command needs after flag and config resolution.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

// newApp loads the config, applies the global flag overrides and builds the
// logger.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI flag overrides.
	if v, _ := cmd.Flags().GetString("tool"); v != "" {
		cfg.ToolPath = v
	}
	if v, _ := cmd.Flags().GetString("work-dir"); v != "" {
		cfg.WorkDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// tool resolves the SCE executable, falling back to a PATH lookup for bare
// names.
func (a *app) tool(extra ...scewin.Option) (*scewin.Tool, error) {
	path := a.cfg.ToolPath
	if _, err := os.Stat(path); err != nil {
		if found, lerr := exec.LookPath(path); lerr == nil {
			path = found
		}
	}

	if !winhost.IsElevated() {
		a.logger.Warn("not running elevated; the SCE tool may fail to reach the firmware")
	}

	opts := []scewin.Option{scewin.WithLogger(a.logger), scewin.WithTimeout(a.cfg.ToolTimeout)}
	return scewin.New(path, append(opts, extra...)...)
}

// service builds the settings accessor. Only the daemon takes a fresh
// backup at start; CLI commands adopt the backup file already on disk so
// that restore and diff refer to the state before the first change.
func (a *app) service(ctx context.Context, freshBackup bool, toolOpts []scewin.Option, opts ...bios.Option) (*bios.Service, error) {
	tool, err := a.tool(toolOpts...)
	if err != nil {
		return nil, err
	}

	base := []bios.Option{bios.WithPaths(a.cfg.Paths()), bios.WithLogger(a.logger)}
	if !freshBackup || a.cfg.SkipBackup {
		base = append(base, bios.ReuseBackup())
	}
	return bios.New(ctx, tool, append(base, opts...)...), nil
}

// openStore opens the history database.
func (a *app) openStore() (*store.Store, error) {
	db, err := store.New(a.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// changeLog opens the database for change recording. Setting changes still
// go through when it cannot be opened; the returned close func is never nil.
func (a *app) changeLog() ([]bios.Option, func()) {
	db, err := a.openStore()
	if err != nil {
		a.logger.Warn("change history disabled", "error", err)
		return nil, func() {}
	}
	return []bios.Option{bios.WithRecorder(convert.Recorder{Store: db})}, func() { _ = db.Close() }
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
