package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-bios/cmd/biosctl/assets"
	"github.com/go-tangra/go-tangra-bios/internal/bios"
	"github.com/go-tangra/go-tangra-bios/internal/convert"
	"github.com/go-tangra/go-tangra-bios/internal/logging"
	"github.com/go-tangra/go-tangra-bios/internal/metrics"
	"github.com/go-tangra/go-tangra-bios/internal/scewin"
	"github.com/go-tangra/go-tangra-bios/internal/server"
	"github.com/go-tangra/go-tangra-bios/internal/winhost"
)

const serviceName = "TangraBiosctl"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the BIOS settings REST API",
	RunE:  runServe,
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage Windows service installation",
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install 'biosctl serve' as a Windows service",
	RunE:  runServiceInstall,
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the Windows service",
	RunE:  runServiceUninstall,
}

func init() {
	serveCmd.Flags().String("listen", "", "HTTP listen address (default :9560)")
	serveCmd.Flags().String("api-secret", "", "secret for REST API clients (empty = no auth)")

	serviceInstallCmd.Flags().String("listen", "", "HTTP listen address for the service")
	serviceInstallCmd.Flags().Bool("delayed-start", true, "start after boot-critical services")

	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(serviceCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := historyApp(cmd)
	if err != nil {
		return err
	}

	// CLI flag overrides.
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		a.cfg.Listen = v
	}
	if v, _ := cmd.Flags().GetString("api-secret"); v != "" {
		a.cfg.ApiSecret = v
	}

	// Windows service mode.
	if winhost.IsWindowsService() {
		level, _ := logging.ParseLevel(a.cfg.LogLevel)
		if l, ok := winhost.EventLogger(serviceName, level); ok {
			a.logger = l
		}
		return winhost.RunService(serviceName, a.logger, func(ctx context.Context) error {
			return serve(ctx, a)
		})
	}

	// Interactive mode: shut down on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, a)
}

func serve(ctx context.Context, a *app) error {
	db, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	reg := metrics.New()
	svc, err := a.service(ctx, true,
		[]scewin.Option{scewin.WithObserver(reg)},
		bios.WithRecorder(convert.Recorder{Store: db}),
		bios.WithObserver(reg),
	)
	if err != nil {
		return err
	}
	if !svc.BackupAvailable() {
		a.logger.Warn("no BIOS backup; restore is disabled until POST /v1/backup succeeds")
	}

	return server.Run(ctx, a.cfg, server.Deps{
		BIOS:    svc,
		Store:   db,
		Metrics: reg,
		Logger:  a.logger,
	}, assets.OpenApiData)
}

func runServiceInstall(cmd *cobra.Command, _ []string) error {
	exePath, err := winhost.ExePath()
	if err != nil {
		return err
	}
	args, err := serviceArgs(cmd)
	if err != nil {
		return err
	}
	delayed, _ := cmd.Flags().GetBool("delayed-start")

	err = winhost.Install(winhost.ServiceConfig{
		Name:         serviceName,
		DisplayName:  "Tangra biosctl",
		Description:  "Serves AMI BIOS settings of this machine over a REST API.",
		ExePath:      exePath,
		Args:         args,
		DelayedStart: delayed,
	})
	if err != nil && !errors.Is(err, winhost.ErrEventSource) {
		return err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	fmt.Printf("Service %s installed successfully\n", serviceName)
	fmt.Printf("  %s %s\n", exePath, strings.Join(args, " "))
	return nil
}

// serviceArgs builds the "serve" command line stored with the service.
// The SCM starts services in the system directory, so relative paths are
// made absolute against the installing shell's working directory.
func serviceArgs(cmd *cobra.Command) ([]string, error) {
	args := []string{"serve"}

	if cfgFile != "" {
		p, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", p)
	}

	for _, f := range []struct {
		name string
		path bool
	}{
		{"tool", true},
		{"work-dir", true},
		{"database", true},
		{"log-level", false},
		{"listen", false},
	} {
		v, _ := cmd.Flags().GetString(f.name)
		if v == "" {
			continue
		}
		// A bare tool name is resolved on PATH at run time.
		if f.path && (f.name != "tool" || strings.ContainsAny(v, `/\`)) {
			abs, err := filepath.Abs(v)
			if err != nil {
				return nil, err
			}
			v = abs
		}
		args = append(args, "--"+f.name, v)
	}

	return args, nil
}

func runServiceUninstall(_ *cobra.Command, _ []string) error {
	if err := winhost.Uninstall(serviceName, 10*time.Second); err != nil {
		return err
	}
	fmt.Printf("Service %s uninstalled successfully\n", serviceName)
	return nil
}
