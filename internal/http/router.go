package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/micro-ha/airplane-scheduler/internal/http/handlers"
)

const (
	requestTimeout = 20 * time.Second
	// toggleTimeout covers a full root sequence of per-command timeouts.
	toggleTimeout = 2 * time.Minute
)

// Options carries the optional pieces of the routing tree.
type Options struct {
	Events   http.Handler
	RPC      http.Handler
	RPCToken string
}

// NewRouter builds full HTTP routing tree for the daemon API.
func NewRouter(api *handlers.API, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RecoverJSON)
	r.Use(StripIngressPrefix)
	r.Use(RequestLogger(api))

	r.Group(func(short chi.Router) {
		short.Use(middleware.Timeout(requestTimeout))
		short.Get("/healthz", api.Health)
		short.Get("/api/state", api.GetState)
		short.Get("/api/capabilities", api.GetCapabilities)
		short.Get("/api/schedules", api.ListSchedules)
		short.Post("/api/schedules/reload", api.ReloadSchedules)
		short.Get("/api/notifications", api.ListNotifications)
	})

	r.Group(func(long chi.Router) {
		long.Use(middleware.Timeout(toggleTimeout))
		long.Post("/api/capabilities/probe", api.ProbeCapabilities)
		long.Post("/api/toggle", api.Toggle)
		long.Post("/api/settings/open", api.OpenSettings)
		long.Post("/api/schedules/{id}/fire", func(w http.ResponseWriter, r *http.Request) {
			api.FireSchedule(w, r, chi.URLParam(r, "id"))
		})
		if opts.RPC != nil {
			long.Method(http.MethodPost, "/api/rpc", RequireToken(opts.RPCToken, opts.RPC))
		}
	})

	if opts.Events != nil {
		r.Get("/api/events", opts.Events.ServeHTTP)
	}
	return r
}

// RunServer starts and gracefully stops HTTP server with context cancellation.
func RunServer(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
