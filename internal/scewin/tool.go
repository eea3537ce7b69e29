// Package scewin drives the AMI SCE command-line utility that exports and
// imports BIOS setup settings as a flat text script.
package scewin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-tangra/go-tangra-bios/internal/logging"
	"github.com/go-tangra/go-tangra-bios/internal/scedump"
)

var (
	// ErrToolNotFound means the configured executable does not exist.
	ErrToolNotFound = errors.New("SCE tool not found")

	// ErrIO is the kind shared by every export and import failure.
	ErrIO = errors.New("SCE tool I/O failure")
)

// ToolError reports a non-zero exit status from the tool.
type ToolError struct {
	Op       string
	File     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("SCE %s %s: exit code %d", e.Op, e.File, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error { return ErrIO }

// Tool invokes the SCE executable. Invocations block until the tool exits;
// no timeout applies unless WithTimeout is set.
type Tool struct {
	path     string
	runner   Runner
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

// Observer receives the outcome of every invocation.
type Observer interface {
	ObserveToolRun(op string, d time.Duration, err error)
}

// Option configures a Tool.
type Option func(*Tool)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(t *Tool) { t.runner = r }
}

// WithTimeout bounds every invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(t *Tool) { t.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tool) { t.logger = logging.OrDiscard(l) }
}

// WithObserver reports every invocation to o.
func WithObserver(o Observer) Option {
	return func(t *Tool) { t.observer = o }
}

// New checks that the executable exists and returns a Tool for it.
func New(path string, opts ...Option) (*Tool, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrToolNotFound, path, err)
	}
	t := &Tool{
		path:   path,
		runner: ExecRunner{},
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Path returns the executable path.
func (t *Tool) Path() string { return t.path }

// Export writes the full current settings dump to dest and returns its
// decoded contents. The file must exist and be non-blank afterwards.
func (t *Tool) Export(ctx context.Context, dest string) (string, error) {
	t.logger.Debug("exporting BIOS settings", "file", dest)

	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: remove stale dump %s: %v", ErrIO, dest, err)
	}
	if err := t.run(ctx, "export", dest, "/o", "/s", dest); err != nil {
		return "", err
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: export did not create %s", ErrIO, dest)
		} else {
			err = fmt.Errorf("%w: read %s: %v", ErrIO, dest, err)
		}
		t.logger.Error("BIOS export failed", "error", err)
		return "", err
	}

	text := scedump.DecodeText(data)
	if strings.TrimSpace(text) == "" {
		err := fmt.Errorf("%w: export produced an empty file %s", ErrIO, dest)
		t.logger.Error("BIOS export failed", "error", err)
		return "", err
	}

	t.logger.Debug("BIOS export complete", "file", dest, "bytes", len(data))
	return text, nil
}

// Import applies the settings script at path to the live configuration.
func (t *Tool) Import(ctx context.Context, path string) error {
	t.logger.Debug("importing BIOS settings", "file", path)
	return t.run(ctx, "import", path, "/i", "/s", path)
}

func (t *Tool) run(ctx context.Context, op, file string, args ...string) (err error) {
	if t.observer != nil {
		start := time.Now()
		defer func() { t.observer.ObserveToolRun(op, time.Since(start), err) }()
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	res, err := t.runner.Run(ctx, t.path, args...)
	if err != nil {
		err = fmt.Errorf("%w: run SCE %s: %v", ErrIO, op, err)
		t.logger.Error("SCE invocation failed", "op", op, "error", err)
		return err
	}
	if res.ExitCode != 0 {
		terr := &ToolError{
			Op:       op,
			File:     file,
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(string(res.Stderr)),
		}
		t.logger.Error("SCE invocation failed", "op", op, "exit_code", res.ExitCode, "stderr", terr.Stderr)
		return terr
	}
	return nil
}
