package handlers

import (
	"errors"
	"net/http"

	"AutoPostAPI/calendar"
	"AutoPostAPI/database"
	"AutoPostAPI/middleware"
	"AutoPostAPI/models"
	"AutoPostAPI/utils"
)

type upcomingResponse struct {
	Category models.Category             `json:"category"`
	Common   []calendar.UpcomingOccasion `json:"common"`
	Specific []calendar.UpcomingOccasion `json:"specific"`
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := h.users.GetUserByID(r.Context(), middleware.UserID(r.Context()))
	if errors.Is(err, database.ErrUserNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	if err != nil {
		utils.Errorf("Error loading user: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error loading user")
		return nil, false
	}
	return user, true
}

// TodayOccasions previews the caller's agenda for today without creating posts.
func (h *Handler) TodayOccasions(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	agenda := h.automation.TodayAgenda(user, h.now())
	if agenda.Events == nil {
		agenda.Events = []calendar.DailyEvent{}
	}
	utils.RespondWithJSON(w, http.StatusOK, agenda)
}

func (h *Handler) UpcomingOccasions(w http.ResponseWriter, r *http.Request) {
	category := models.Category(r.URL.Query().Get("category"))
	if category == "" {
		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		category = user.DefaultCategory
	}
	if !category.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid category")
		return
	}

	common, specific := h.automation.Upcoming(category, h.now())
	resp := upcomingResponse{Category: category, Common: common, Specific: specific}
	if resp.Common == nil {
		resp.Common = []calendar.UpcomingOccasion{}
	}
	if resp.Specific == nil {
		resp.Specific = []calendar.UpcomingOccasion{}
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
