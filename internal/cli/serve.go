package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Ngone6325/graft"
	"github.com/Ngone6325/graft/model"
	"github.com/Ngone6325/graft/scopehttp"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo user API with one scope per request",
		Long: `Start an HTTP server whose handlers resolve the demo user domain from a
scope that begins with each request and ends when the handler returns:
- GET /users/me   user name and the instance ids seen by the request
- GET /health     liveness check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (overrides http.addr)")
	return cmd
}

// serve runs the HTTP server until ctx is done, then shuts it down.
func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           newRouter(a.container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// userResponse is the body of GET /users/me.
type userResponse struct {
	Name        string   `json:"name"`
	ServiceUUID string   `json:"service_uuid"`
	RepoUUID    string   `json:"repo_uuid"`
	LogUUID     string   `json:"log_uuid"`
	LogEntries  []string `json:"log_entries"`
}

func newRouter(c *graft.Container) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(scopehttp.Middleware(c))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	r.Get("/users/me", handleCurrentUser)
	return r
}

func handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	logger := scopehttp.Logger(r.Context())

	svc, err := scopehttp.Resolve[model.IUserService](r)
	if err != nil {
		logger.Error("resolve user service", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	userLog, err := scopehttp.Resolve[model.IUserLog](r)
	if err != nil {
		logger.Error("resolve user log", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	userLog.LogUserID()
	resp := userResponse{
		Name:        svc.GetUserName(),
		ServiceUUID: svc.GetServiceUUID(),
		RepoUUID:    svc.GetRepoUUID(),
		LogUUID:     userLog.GetLogUUID(),
		LogEntries:  userLog.Entries(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn("write response", "error", err)
	}
}
