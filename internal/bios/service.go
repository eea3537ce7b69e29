// Package bios exposes the firmware settings of the local machine through the
// AMI SCE tool: lookups, edits, keyword searches and backup/restore.
package bios

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-tangra/go-tangra-bios/internal/logging"
	"github.com/go-tangra/go-tangra-bios/internal/scedump"
)

// Tool exports and imports settings scripts.
type Tool interface {
	Export(ctx context.Context, dest string) (string, error)
	Import(ctx context.Context, script string) error
}

// Change describes one attempted setting update.
type Change struct {
	ID          string
	Setting     string
	OldRaw      string
	NewRaw      string
	RequestedAt time.Time
	Success     bool
	Error       string
}

// ChangeRecorder persists attempted setting updates.
type ChangeRecorder interface {
	RecordChange(ctx context.Context, c Change) error
}

// Observer receives the outcome of setting writes and restores.
type Observer interface {
	ObserveSettingWrite(ok bool)
	ObserveRestore(ok bool)
}

// Paths are the working files used by the service.
type Paths struct {
	Dump   string
	Script string
	Backup string
}

// DefaultPaths returns the standard file names under dir, or under the OS
// temp directory when dir is empty.
func DefaultPaths(dir string) Paths {
	if dir == "" {
		dir = os.TempDir()
	}
	return Paths{
		Dump:   filepath.Join(dir, "bios_out.txt"),
		Script: filepath.Join(dir, "bios_set.txt"),
		Backup: filepath.Join(dir, "bios_backup.txt"),
	}
}

// Option configures a Service.
type Option func(*Service)

// WithPaths overrides the working files.
func WithPaths(p Paths) Option {
	return func(s *Service) { s.paths = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.OrDiscard(l) }
}

// WithRecorder records every SetSettingValue attempt.
func WithRecorder(r ChangeRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithObserver reports writes and restores to o.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// ReuseBackup skips the construction-time export and adopts the backup
// file left by an earlier run, if it exists and is not empty.
func ReuseBackup() Option {
	return func(s *Service) { s.reuseBackup = true }
}

// Service is the settings accessor. Every read exports and parses a fresh
// dump; nothing is cached.
//
// Calls on one Service are serialized. Separate processes or Services that
// share the same working files are not coordinated: only one writer may use
// a set of paths at a time.
type Service struct {
	tool        Tool
	paths       Paths
	logger      *slog.Logger
	recorder    ChangeRecorder
	observer    Observer
	reuseBackup bool
	now         func() time.Time

	mu              sync.Mutex
	backupAvailable bool
}

// New returns a Service and takes a backup of the current settings. A
// failed backup is logged and only disables RestoreDefaults.
func New(ctx context.Context, tool Tool, opts ...Option) *Service {
	s := &Service{
		tool:   tool,
		paths:  DefaultPaths(""),
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.reuseBackup {
		if fi, err := os.Stat(s.paths.Backup); err == nil && fi.Size() > 0 {
			s.backupAvailable = true
		}
		return s
	}
	if err := s.Backup(ctx); err != nil {
		s.logger.Warn("could not back up BIOS settings", "file", s.paths.Backup, "error", err)
	}
	return s
}

// Paths returns the working files.
func (s *Service) Paths() Paths { return s.paths }

// export runs the tool into the dump file. Callers hold s.mu.
func (s *Service) export(ctx context.Context) (string, error) {
	return s.tool.Export(ctx, s.paths.Dump)
}

// GetSettingValue returns the current value of the first setting whose
// header contains name. Non-numeric values yield a hash placeholder; use
// GetSettingType to tell them apart.
func (s *Service) GetSettingValue(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.export(ctx)
	if err != nil {
		return 0, err
	}
	n, numeric, err := scedump.LookupValue(text, name)
	if err != nil {
		return 0, err
	}
	if !numeric {
		raw, _ := scedump.LookupRaw(text, name)
		s.logger.Warn("non-numeric BIOS value", "setting", name, "value", raw)
	}
	return n, nil
}

// GetSettingType returns the type class of the setting's current value.
func (s *Service) GetSettingType(ctx context.Context, name string) (scedump.Type, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.export(ctx)
	if err != nil {
		return "", err
	}
	return scedump.LookupType(text, name)
}

// SetSettingValue rewrites the setting's Value line in a fresh dump, writes
// the whole script and imports it. When the import fails the script stays
// on disk and the firmware state is unknown; re-read before trusting it.
func (s *Service) SetSettingValue(ctx context.Context, name string, v scedump.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.export(ctx)
	if err != nil {
		return err
	}

	m, err := scedump.Rewrite(text, name, v)
	if err != nil {
		s.logger.Error("cannot set BIOS setting", "setting", name, "error", err)
		return err
	}
	s.logger.Debug("rewriting BIOS setting", "setting", name, "old", m.OldRaw, "new", m.NewRaw, "line", m.Line+1)

	if err := os.WriteFile(s.paths.Script, []byte(m.Text), 0o644); err != nil {
		return fmt.Errorf("write script %s: %w", s.paths.Script, err)
	}

	s.logger.Info("applying BIOS setting", "setting", name, "value", v.String())
	importErr := s.tool.Import(ctx, s.paths.Script)
	s.record(ctx, name, m, importErr)
	if s.observer != nil {
		s.observer.ObserveSettingWrite(importErr == nil)
	}

	if importErr != nil {
		return fmt.Errorf("apply %q: %w", name, importErr)
	}
	s.logger.Info("BIOS setting applied", "setting", name, "value", m.NewRaw)
	return nil
}

func (s *Service) record(ctx context.Context, name string, m *scedump.Mutation, importErr error) {
	if s.recorder == nil {
		return
	}
	c := Change{
		ID:          uuid.NewString(),
		Setting:     name,
		OldRaw:      m.OldRaw,
		NewRaw:      m.NewRaw,
		RequestedAt: s.now().UTC(),
		Success:     importErr == nil,
	}
	if importErr != nil {
		c.Error = importErr.Error()
	}
	if err := s.recorder.RecordChange(ctx, c); err != nil {
		s.logger.Warn("could not record BIOS change", "setting", name, "error", err)
	}
}

// ParseAllSettings exports and parses every setting.
func (s *Service) ParseAllSettings(ctx context.Context) (*scedump.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parseAll(ctx)
}

func (s *Service) parseAll(ctx context.Context) (*scedump.Settings, error) {
	s.logger.Info("parsing all BIOS settings")
	text, err := s.export(ctx)
	if err != nil {
		return nil, err
	}
	settings := scedump.Parse(text)
	s.logger.Info("parsed BIOS settings", "count", settings.Len())
	return settings, nil
}

// Backup exports the current settings to the backup file.
func (s *Service) Backup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.tool.Export(ctx, s.paths.Backup); err != nil {
		s.backupAvailable = false
		return err
	}
	s.backupAvailable = true
	s.logger.Info("BIOS settings backed up", "file", s.paths.Backup)
	return nil
}

// BackupAvailable reports whether a backup was taken successfully.
func (s *Service) BackupAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backupAvailable
}

// RestoreDefaults imports the backup taken at construction (or by the last
// Backup call). Failures are logged and reported as false.
func (s *Service) RestoreDefaults(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.backupAvailable {
		s.logger.Error("no BIOS backup available")
		return false
	}

	s.logger.Info("restoring BIOS settings from backup", "file", s.paths.Backup)
	err := s.tool.Import(ctx, s.paths.Backup)
	if s.observer != nil {
		s.observer.ObserveRestore(err == nil)
	}
	if err != nil {
		s.logger.Error("BIOS restore failed", "error", err)
		return false
	}
	s.logger.Info("BIOS settings restored")
	return true
}

// ErrNoBackup is returned by operations that need a backup when none is
// available.
var ErrNoBackup = errors.New("no BIOS backup available")
