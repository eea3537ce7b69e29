package winhost

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// ServiceConfig describes how the daemon is registered with the Service
// Control Manager.
type ServiceConfig struct {
	Name        string
	DisplayName string
	Description string
	ExePath     string
	Args        []string

	// Restarts holds the delay before each restart after a crash. Once
	// they are used up the service stays stopped until ResetPeriod has
	// passed without a failure.
	Restarts    []time.Duration
	ResetPeriod time.Duration

	// DelayedStart starts the service after the boot-critical ones, when
	// the SCE driver can be loaded.
	DelayedStart bool

	// StopWait bounds how long Uninstall waits for a running service.
	StopWait time.Duration
}

// DefaultRestarts backs off twice, then gives up. A crash loop would
// otherwise keep re-taking the BIOS backup.
var DefaultRestarts = []time.Duration{10 * time.Second, 30 * time.Second}

// ErrServiceExists is returned by Install when the name is already taken.
var ErrServiceExists = errors.New("service already exists")

func (c ServiceConfig) normalize() (ServiceConfig, error) {
	if c.Name == "" {
		return c, errors.New("service name is required")
	}
	if c.ExePath == "" || !filepath.IsAbs(c.ExePath) {
		return c, fmt.Errorf("service executable must be an absolute path: %q", c.ExePath)
	}
	if c.DisplayName == "" {
		c.DisplayName = c.Name
	}
	if c.Restarts == nil {
		c.Restarts = DefaultRestarts
	}
	if c.ResetPeriod <= 0 {
		c.ResetPeriod = 24 * time.Hour
	}
	if c.StopWait <= 0 {
		c.StopWait = 5 * time.Second
	}
	return c, nil
}
