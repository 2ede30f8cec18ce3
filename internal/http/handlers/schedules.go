package handlers

import (
	"errors"
	"net/http"

	"github.com/micro-ha/airplane-scheduler/internal/scheduler"
)

func (a *API) ListSchedules(w http.ResponseWriter, _ *http.Request) {
	if a.schedules == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_disabled", "Scheduler is not running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": a.schedules.List()})
}

func (a *API) FireSchedule(w http.ResponseWriter, r *http.Request, id string) {
	if a.schedules == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_disabled", "Scheduler is not running")
		return
	}
	outcome, err := a.schedules.Fire(r.Context(), id)
	if err != nil {
		if errors.Is(err, scheduler.ErrScheduleNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Schedule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fire_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) ReloadSchedules(w http.ResponseWriter, r *http.Request) {
	if a.schedules == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_disabled", "Scheduler is not running")
		return
	}
	if err := a.schedules.Reload(r.Context()); err != nil {
		code := "reload_failed"
		if errors.Is(err, scheduler.ErrInvalidSchedule) {
			code = "invalid_schedules"
		}
		writeError(w, http.StatusUnprocessableEntity, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": a.schedules.List()})
}
