package server

import (
	"context"
	"crypto/subtle"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"

	"github.com/go-tangra/go-tangra-bios/internal/metrics"
)

// ApiSecretMiddleware returns a Kratos middleware that validates the X-API-Key
// HTTP header. An empty secret disables authentication (pass-through).
// Swagger UI and /metrics are unaffected because they are registered via
// Handle/HandlePrefix which bypasses the Kratos middleware chain.
func ApiSecretMiddleware(secret string) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			if secret == "" {
				return handler(ctx, req)
			}

			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return nil, kerrors.InternalServer("TRANSPORT", "no transport in context")
			}

			key := tr.RequestHeader().Get("X-API-Key")
			if key == "" {
				return nil, kerrors.Unauthorized("UNAUTHENTICATED", "missing X-API-Key header")
			}

			if subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
				return nil, kerrors.Unauthorized("UNAUTHENTICATED", "invalid X-API-Key")
			}

			return handler(ctx, req)
		}
	}
}

// MetricsMiddleware counts requests by operation and resulting status code.
func MetricsMiddleware(reg *metrics.Registry) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			reply, err := handler(ctx, req)

			operation := "unknown"
			if tr, ok := transport.FromServerContext(ctx); ok {
				operation = tr.Operation()
			}
			code := 200
			if err != nil {
				code = int(kerrors.FromError(err).Code)
			}
			reg.ObserveRequest(operation, code)

			return reply, err
		}
	}
}
