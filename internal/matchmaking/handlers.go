// internal/matchmaking/handlers.go

package matchmaking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/onematch/onematch-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetDailyMatch handles GET /api/v1/matches/daily
func (h *Handler) GetDailyMatch(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	result, err := h.service.RequestDailyMatch(r.Context(), userID)
	if err != nil {
		var notEligible *NotEligibleError
		if errors.As(err, &notEligible) {
			utils.RespondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": "Not eligible for a new match",
				"state": &NotEligibleResponse{
					CurrentState:        notEligible.CurrentState,
					StateStartTime:      notEligible.StateStartTime,
					ReflectionPeriodEnd: notEligible.ReflectionPeriodEnd,
					LastFeedback:        notEligible.LastFeedback,
				},
			})
			return
		}
		if errors.Is(err, ErrNoCandidates) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get daily match")
		return
	}

	code := http.StatusOK
	if result.IsNew {
		code = http.StatusCreated
	}
	utils.RespondWithData(w, code, result)
}

// GetMatch handles GET /api/v1/matches/{id}
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	matchID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	details, err := h.service.GetMatchDetails(r.Context(), userID, matchID)
	if err != nil {
		h.respondMatchError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, details)
}

// PinMatch handles PUT /api/v1/matches/{id}/pin
func (h *Handler) PinMatch(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	matchID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	match, err := h.service.PinMatch(r.Context(), userID, matchID)
	if err != nil {
		h.respondMatchError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, match)
}

// UnpinMatch handles PUT /api/v1/matches/{id}/unpin
func (h *Handler) UnpinMatch(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	matchID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	var dto UnpinMatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.UnpinMatch(r.Context(), userID, matchID, dto.Reason, dto.Details)
	if err != nil {
		h.respondMatchError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, result)
}

// GetState handles GET /api/v1/matches/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	state, err := h.service.GetUserState(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get user state")
		return
	}

	utils.RespondWithData(w, http.StatusOK, state)
}

func (h *Handler) respondMatchError(w http.ResponseWriter, err error) {
	var inconsistent *InconsistentStateError

	switch {
	case errors.Is(err, ErrMatchNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotMatchMember):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrMatchNotOngoing):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.As(err, &inconsistent):
		utils.RespondWithError(w, http.StatusInternalServerError, "Match state update failed, please retry")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
