package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
	"github.com/micro-ha/airplane-scheduler/internal/scheduler"
)

// Capabilities probes privilege tiers and answers host UI permission queries.
type Capabilities interface {
	Probe(ctx context.Context) airplane.CapabilitySnapshot
	HostCapabilities(ctx context.Context, includeRoot bool) airplane.HostCapabilities
}

// Schedules exposes the loaded schedule set.
type Schedules interface {
	List() []scheduler.Entry
	Fire(ctx context.Context, id string) (airplane.ToggleOutcome, error)
	Reload(ctx context.Context) error
}

// StateCache is the last airplane flag observed by the state poller.
type StateCache interface {
	Last() (enabled bool, observedAt time.Time, ok bool)
	TriggerRefresh()
}

// Dependencies lists what the handlers need. Schedules, StateCache and
// Notifications may be nil in which case their endpoints report unavailable.
type Dependencies struct {
	State         airplane.StateReader
	Capabilities  Capabilities
	Toggler       airplane.Toggler
	Surface       airplane.ManualSurface
	Schedules     Schedules
	StateCache    StateCache
	Notifications airplane.NotificationStore
	Logger        *slog.Logger
}

// API groups HTTP handlers and dependencies.
type API struct {
	state         airplane.StateReader
	capabilities  Capabilities
	toggler       airplane.Toggler
	surface       airplane.ManualSurface
	schedules     Schedules
	stateCache    StateCache
	notifications airplane.NotificationStore
	logger        *slog.Logger
}

// New creates HTTP handlers with explicit dependencies.
func New(deps Dependencies) *API {
	return &API{
		state:         deps.State,
		capabilities:  deps.Capabilities,
		toggler:       deps.Toggler,
		surface:       deps.Surface,
		schedules:     deps.Schedules,
		stateCache:    deps.StateCache,
		notifications: deps.Notifications,
		logger:        deps.Logger,
	}
}

// Logger returns request logger used by HTTP middleware.
func (a *API) Logger() *slog.Logger {
	return a.logger
}

// Health reports service liveness.
func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{"status": "ok"}
	if a.schedules != nil {
		payload["schedules"] = len(a.schedules.List())
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
