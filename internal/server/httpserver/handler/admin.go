package handler

import (
	"net/http"
	"time"
)

// handleAdminStatus handles GET /admin/v1/status/summary.
func (h *Handler) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "status source not configured")
		return
	}
	h.writeJSON(w, r, http.StatusOK, StatusSummary{
		Status:           "running",
		Version:          h.version,
		UptimeSeconds:    int64(h.status.Uptime().Seconds()),
		ConnectedClients: h.status.Clients(),
		Keys:             h.status.Keys(),
		KeysWithExpiry:   h.status.Expires(),
		ExpiredKeys:      h.status.ExpiredKeys(),
		AOFWrittenBytes:  h.status.AOFWrittenBytes(),
	})
}

// handleGCTrigger handles POST /admin/v1/gc/trigger.
func (h *Handler) handleGCTrigger(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "sweeper not configured")
		return
	}
	removed := h.sweeper.Sweep(r.Context())
	h.logger.Info("expiry sweep triggered", "removed", removed)

	h.writeJSON(w, r, http.StatusOK, GCResult{
		Removed:     removed,
		TriggeredAt: time.Now().UTC().Format(time.RFC3339),
	})
}
