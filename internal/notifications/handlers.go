// internal/notifications/handlers.go

package notifications

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/onematch/onematch-backend/internal/common/utils"
	"github.com/onematch/onematch-backend/internal/matchmaking"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetNotifications handles GET /api/v1/notifications
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get notifications")
		return
	}

	utils.RespondWithData(w, http.StatusOK, list)
}

// GetChatActivity handles GET /api/v1/notifications/activity/{matchId}
func (h *Handler) GetChatActivity(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	matchID, err := uuid.Parse(mux.Vars(r)["matchId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	activity, err := h.service.ChatActivity(r.Context(), userID, matchID)
	if err != nil {
		switch {
		case errors.Is(err, matchmaking.ErrMatchNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, matchmaking.ErrNotMatchMember):
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get chat activity")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, activity)
}
