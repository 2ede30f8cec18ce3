package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

func (a *API) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if a.notifications == nil {
		writeError(w, http.StatusServiceUnavailable, "inbox_disabled", "Notification inbox is not configured")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = value
	}
	items, err := a.notifications.ListNotifications(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
