package handlers

import (
	"net/http"

	"AutoPostAPI/middleware"
	"AutoPostAPI/utils"
)

// RunDaily runs the daily provisioning job immediately.
func (h *Handler) RunDaily(w http.ResponseWriter, r *http.Request) {
	utils.WithFields(utils.Fields{"user_id": middleware.UserID(r.Context())}).Info("Manual daily automation run requested")

	report, err := h.automation.RunDaily(r.Context(), h.now())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Daily automation failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}

func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	utils.WithFields(utils.Fields{"user_id": middleware.UserID(r.Context())}).Info("Manual sweep requested")

	report, err := h.automation.RunSweep(r.Context(), h.now())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Sweep failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}
