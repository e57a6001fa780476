package messaging

import (
	"github.com/gorilla/mux"

	"github.com/onematch/onematch-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/messages").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.SendMessage).Methods("POST")
	api.HandleFunc("/{matchId}", handler.GetMessages).Methods("GET")
	api.HandleFunc("/{matchId}/read", handler.MarkRead).Methods("PUT")
	api.HandleFunc("/{matchId}/unread", handler.GetUnreadCount).Methods("GET")
	api.HandleFunc("/{matchId}/milestone", handler.GetMilestoneStatus).Methods("GET")

	// Websocket endpoint; token accepted via query parameter
	router.Handle("/ws", authMiddleware.AuthenticateFunc(handler.ServeWS))
}
