package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"
	swaggerUI "github.com/tx7do/kratos-swagger-ui"

	"github.com/go-tangra/go-tangra-bios/internal/config"
	"github.com/go-tangra/go-tangra-bios/internal/logging"
	"github.com/go-tangra/go-tangra-bios/internal/metrics"
	"github.com/go-tangra/go-tangra-bios/internal/store"
)

// defaultRequestTimeout bounds a request when no tool timeout is
// configured. One request may export twice and import once.
const defaultRequestTimeout = 10 * time.Minute

// Deps are the collaborators served by Run.
type Deps struct {
	BIOS     BIOS
	Store    *store.Store
	Firmware FirmwareFunc
	Metrics  *metrics.Registry
	Logger   *slog.Logger
}

// NewHTTPServer builds the REST server: API routes behind the recovery,
// metrics and API-secret middleware, plus /metrics and the Swagger UI.
func NewHTTPServer(cfg *config.Config, h *Handler, reg *metrics.Registry, openApiData []byte) *kratoshttp.Server {
	timeout := defaultRequestTimeout
	if cfg.ToolTimeout > 0 {
		timeout = 3 * cfg.ToolTimeout
	}

	mws := []middleware.Middleware{recovery.Recovery()}
	if reg != nil {
		mws = append(mws, MetricsMiddleware(reg))
	}
	mws = append(mws, ApiSecretMiddleware(cfg.ApiSecret))

	srv := kratoshttp.NewServer(
		kratoshttp.Address(cfg.Listen),
		kratoshttp.Timeout(timeout),
		kratoshttp.Middleware(mws...),
	)
	h.Register(srv)

	if reg != nil {
		srv.Handle("/metrics", reg.Handler())
	}

	// Swagger UI (registered via HandlePrefix, bypasses middleware chain).
	if cfg.EnableSwagger && len(openApiData) > 0 {
		swaggerUI.RegisterSwaggerUIServerWithOption(
			srv,
			swaggerUI.WithTitle("biosctl"),
			swaggerUI.WithMemoryData(openApiData, "yaml"),
		)
	}

	return srv
}

// Run serves the REST API and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, deps Deps, openApiData []byte) error {
	logger := logging.OrDiscard(deps.Logger)

	h := NewHandler(deps.BIOS, deps.Store, deps.Firmware, logger)
	srv := NewHTTPServer(cfg, h, deps.Metrics, openApiData)

	if cfg.RetentionDays > 0 {
		go runPurgeLoop(ctx, deps.Store, cfg.RetentionDays, cfg.PurgeInterval, logger)
		logger.Info("snapshot retention enabled", "days", cfg.RetentionDays, "interval", cfg.PurgeInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	logger.Info("biosctl REST API listening", "addr", cfg.Listen, "db", cfg.DatabasePath)
	if cfg.EnableSwagger && len(openApiData) > 0 {
		logger.Info("Swagger UI available", "url", fmt.Sprintf("http://%s/docs/", cfg.Listen))
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Stop(stopCtx)
	}
}

// purger is the subset of store.Store used by the retention loop.
type purger interface {
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

func runPurgeLoop(ctx context.Context, db purger, retentionDays int, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeOnce(ctx, db, retentionDays, logger)
		}
	}
}

func purgeOnce(ctx context.Context, db purger, retentionDays int, logger *slog.Logger) {
	olderThan := time.Duration(retentionDays) * 24 * time.Hour
	n, err := db.Purge(ctx, olderThan)
	if err != nil {
		logger.Error("purge failed", "error", err)
	} else if n > 0 {
		logger.Info("purged old records", "count", n, "days", retentionDays)
	}
}
