//go:build windows

package winhost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
)

// EventLogger opens the named event log source and returns a logger
// writing to it. ok is false when the source cannot be opened; the caller
// keeps its current logger.
func EventLogger(name string, level slog.Leveler) (logger *slog.Logger, ok bool) {
	elog, err := eventlog.Open(name)
	if err != nil {
		return nil, false
	}
	return slog.New(NewEventLogHandler(elog, level)), true
}

// IsWindowsService reports whether the process is running as a
// Windows service.
func IsWindowsService() bool {
	ok, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return ok
}

// IsElevated reports whether the process token is elevated. The SCE tool
// needs administrator rights to reach the firmware driver.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// serviceHandler implements svc.Handler for a long-running function.
type serviceHandler struct {
	name   string
	run    func(ctx context.Context) error
	logger *slog.Logger
}

func (h *serviceHandler) Execute(args []string, req <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown
	status <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.run(ctx)
	}()

	status <- svc.Status{State: svc.Running, Accepts: accepted}

	for {
		select {
		case err := <-errCh:
			status <- svc.Status{State: svc.StopPending}
			if err != nil {
				h.logger.Error("service stopped with error", "service", h.name, "error", err)
				return false, 1
			}
			return false, 0

		case cr := <-req:
			switch cr.Cmd {
			case svc.Interrogate:
				status <- cr.CurrentStatus
			case svc.Stop, svc.Shutdown:
				status <- svc.Status{State: svc.StopPending}
				cancel()
				// A tool import in flight is not interrupted mid-write by
				// the SCM; give it time to finish.
				select {
				case <-errCh:
				case <-time.After(2 * time.Minute):
					h.logger.Warn("timed out waiting for graceful shutdown", "service", h.name)
				}
				return false, 0
			}
		}
	}
}

// RunService runs the named Windows service, blocking until the
// service stops. The run function receives a context that is
// cancelled when the SCM requests a stop.
func RunService(name string, logger *slog.Logger, run func(ctx context.Context) error) error {
	return svc.Run(name, &serviceHandler{name: name, run: run, logger: logger})
}

// Install registers the service described by cfg and creates its event
// log source. A failure to create the source leaves the service installed
// and returns an error wrapping ErrEventSource.
func Install(cfg ServiceConfig) error {
	cfg, err := cfg.normalize()
	if err != nil {
		return err
	}

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(cfg.Name)
	if err == nil {
		s.Close()
		return fmt.Errorf("%w: %s", ErrServiceExists, cfg.Name)
	}

	s, err = m.CreateService(cfg.Name, cfg.ExePath, mgr.Config{
		DisplayName:      cfg.DisplayName,
		Description:      cfg.Description,
		StartType:        mgr.StartAutomatic,
		DelayedAutoStart: cfg.DelayedStart,
	}, cfg.Args...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer s.Close()

	actions := make([]mgr.RecoveryAction, 0, len(cfg.Restarts)+1)
	for _, d := range cfg.Restarts {
		actions = append(actions, mgr.RecoveryAction{Type: mgr.ServiceRestart, Delay: d})
	}
	actions = append(actions, mgr.RecoveryAction{Type: mgr.NoAction})
	if err := s.SetRecoveryActions(actions, uint32(cfg.ResetPeriod/time.Second)); err != nil {
		return fmt.Errorf("set recovery actions: %w", err)
	}

	if err := eventlog.InstallAsEventCreate(cfg.Name, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		return fmt.Errorf("%w: %v", ErrEventSource, err)
	}

	return nil
}

// Uninstall stops the named service, waiting up to stopWait, then removes
// it and its event log source.
func Uninstall(name string, stopWait time.Duration) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer s.Close()

	if status, err := s.Query(); err == nil && status.State != svc.Stopped {
		if _, err := s.Control(svc.Stop); err == nil {
			waitStopped(s, stopWait)
		}
	}

	if err := s.Delete(); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}

	_ = eventlog.Remove(name)

	return nil
}

func waitStopped(s *mgr.Service, wait time.Duration) {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		time.Sleep(250 * time.Millisecond)
		status, err := s.Query()
		if err != nil || status.State == svc.Stopped {
			return
		}
	}
}

// ExePath returns the path to the currently running executable.
func ExePath() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", errors.New("cannot determine executable path")
	}
	return p, nil
}
