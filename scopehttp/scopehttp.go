// Package scopehttp begins a graft scope for every HTTP request and carries
// it, with a request logger, through the request context.
package scopehttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Ngone6325/graft"
)

// ErrNoScope is returned when a request context carries no scope.
var ErrNoScope = errors.New("scopehttp: no scope in request context")

// key is an unexported type to prevent collisions with context keys from other packages.
type key int

const (
	scopeKey key = iota
	loggerKey
)

// WithScope returns a new context carrying s.
func WithScope(ctx context.Context, s *graft.Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// FromContext extracts the scope from ctx.
func FromContext(ctx context.Context) (*graft.Scope, bool) {
	s, ok := ctx.Value(scopeKey).(*graft.Scope)
	return s, ok
}

// WithLogger returns a new context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger extracts the request logger from ctx, falling back to slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// Middleware begins a scope on c before the next handler runs and ends it,
// closing scoped instances, once the handler returns.
func Middleware(c *graft.Container) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := c.BeginScope()
			logger := c.Logger().With("scope", s.ID().String(), "method", r.Method, "path", r.URL.Path)
			defer func() {
				if err := s.End(); err != nil {
					logger.Warn("request scope ended with errors", "error", err)
				}
			}()

			ctx := WithLogger(WithScope(r.Context(), s), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Resolve resolves T from the scope of r.
func Resolve[T any](r *http.Request) (T, error) {
	s, ok := FromContext(r.Context())
	if !ok {
		var zero T
		return zero, ErrNoScope
	}
	return graft.Resolve[T](s)
}
