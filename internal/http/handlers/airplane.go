package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

type stateResponse struct {
	Enabled    bool       `json:"enabled"`
	ReadAt     time.Time  `json:"read_at"`
	ObservedAt *time.Time `json:"last_observed_at,omitempty"`
}

// GetState reads the airplane flag directly from the system.
func (a *API) GetState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		Enabled: a.state.ReadState(r.Context()),
		ReadAt:  time.Now().UTC(),
	}
	if a.stateCache != nil {
		if _, observedAt, ok := a.stateCache.Last(); ok {
			resp.ObservedAt = &observedAt
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCapabilities answers permission queries without the root check.
func (a *API) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.capabilities.HostCapabilities(r.Context(), false))
}

type probeResponse struct {
	Snapshot airplane.CapabilitySnapshot `json:"snapshot"`
	BestTier airplane.Tier               `json:"best_tier"`
	Host     airplane.HostCapabilities   `json:"host"`
}

// ProbeCapabilities runs the full probe including the side-effecting root check.
func (a *API) ProbeCapabilities(w http.ResponseWriter, r *http.Request) {
	snapshot := a.capabilities.Probe(r.Context())
	host := a.capabilities.HostCapabilities(r.Context(), false)
	root := snapshot.Has(airplane.TierRootShell)
	host.Root = &root
	host.ElevatedPermission = snapshot.Has(airplane.TierElevatedSettingsWrite)
	writeJSON(w, http.StatusOK, probeResponse{Snapshot: snapshot, BestTier: snapshot.Best(), Host: host})
}

type toggleRequest struct {
	Enable       *bool  `json:"enable"`
	ScheduleID   string `json:"schedule_id"`
	ScheduleName string `json:"schedule_name"`
}

func (req toggleRequest) event(desired airplane.DesiredState) *airplane.ScheduleEvent {
	if strings.TrimSpace(req.ScheduleID) == "" && strings.TrimSpace(req.ScheduleName) == "" {
		return nil
	}
	return &airplane.ScheduleEvent{
		ScheduleID:   strings.TrimSpace(req.ScheduleID),
		ScheduleName: strings.TrimSpace(req.ScheduleName),
		Desired:      desired,
		FiresAt:      time.Now().UTC(),
	}
}

// Toggle applies the requested airplane mode and returns the outcome.
func (a *API) Toggle(w http.ResponseWriter, r *http.Request) {
	var payload toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	if payload.Enable == nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "enable is required")
		return
	}
	desired := airplane.DesiredState(*payload.Enable)
	outcome := a.toggler.Apply(r.Context(), desired, payload.event(desired))
	writeJSON(w, http.StatusOK, outcome)
}

// OpenSettings shows the airplane mode settings screen on the device.
func (a *API) OpenSettings(w http.ResponseWriter, r *http.Request) {
	if err := a.surface.OpenSettings(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "open_settings_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
