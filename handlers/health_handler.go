package handlers

import (
	"context"
	"net/http"
	"time"

	"AutoPostAPI/utils"
)

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		utils.Warnf("Health check: database unreachable: %v", err)
		utils.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "unreachable"})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy", "timezone": h.automation.Location().String()})
}
