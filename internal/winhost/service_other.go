//go:build !windows

package winhost

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"
)

// EventLogger is unavailable on non-Windows platforms.
func EventLogger(string, slog.Leveler) (*slog.Logger, bool) { return nil, false }

// IsWindowsService always returns false on non-Windows platforms.
func IsWindowsService() bool { return false }

// IsElevated reports whether the process runs as root.
func IsElevated() bool { return os.Geteuid() == 0 }

// RunService is not supported on non-Windows platforms.
func RunService(string, *slog.Logger, func(ctx context.Context) error) error {
	return errors.New("windows services are not supported on this platform")
}

// Install validates cfg but cannot register it on non-Windows platforms.
func Install(cfg ServiceConfig) error {
	if _, err := cfg.normalize(); err != nil {
		return err
	}
	return errors.New("windows service install is not supported on this platform")
}

// Uninstall is not supported on non-Windows platforms.
func Uninstall(string, time.Duration) error {
	return errors.New("windows service uninstall is not supported on this platform")
}

// ExePath returns the path to the currently running executable.
func ExePath() (string, error) {
	return os.Executable()
}
