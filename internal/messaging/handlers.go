// internal/messaging/handlers.go

package messaging

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/onematch/onematch-backend/internal/common/utils"
	"github.com/onematch/onematch-backend/internal/matchmaking"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are enforced at the gateway
		return true
	},
}

type Handler struct {
	service Service
	hub     *Hub
}

func NewHandler(service Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// SendMessage handles POST /api/v1/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var dto SendMessageDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	message, milestone, err := h.service.SendMessage(r.Context(), userID, &dto)
	if err != nil {
		h.respondMessageError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusCreated, map[string]interface{}{
		"message":           message,
		"milestone_reached": milestone,
	})
}

// GetMessages handles GET /api/v1/messages/{matchId}
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	matchID, err := uuid.Parse(mux.Vars(r)["matchId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := h.service.GetMessages(r.Context(), userID, matchID, limit, offset)
	if err != nil {
		h.respondMessageError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, messages)
}

// MarkRead handles PUT /api/v1/messages/{matchId}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	matchID, err := uuid.Parse(mux.Vars(r)["matchId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	count, err := h.service.MarkRead(r.Context(), userID, matchID)
	if err != nil {
		h.respondMessageError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, map[string]int{"marked_read": count})
}

// GetUnreadCount handles GET /api/v1/messages/{matchId}/unread
func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	matchID, err := uuid.Parse(mux.Vars(r)["matchId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	count, err := h.service.UnreadCount(r.Context(), userID, matchID)
	if err != nil {
		h.respondMessageError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, map[string]int{"unread_count": count})
}

// GetMilestoneStatus handles GET /api/v1/messages/{matchId}/milestone
func (h *Handler) GetMilestoneStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	matchID, err := uuid.Parse(mux.Vars(r)["matchId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	status, err := h.service.MilestoneStatus(r.Context(), userID, matchID)
	if err != nil {
		h.respondMessageError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, status)
}

// ServeWS handles GET /ws, upgrading to a websocket connection
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed for user %d: %v", userID, err)
		return
	}

	client := NewClient(h.hub, conn, userID, h.service)
	client.Start()
}

func (h *Handler) respondMessageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matchmaking.ErrMatchNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, matchmaking.ErrNotMatchMember):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, matchmaking.ErrMatchNotOngoing):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, matchmaking.ErrInvalidRecipient):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrVoiceURLRequired), errors.Is(err, ErrMessageTooLong):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
