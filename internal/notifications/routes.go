package notifications

import (
	"github.com/gorilla/mux"

	"github.com/onematch/onematch-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/notifications").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.GetNotifications).Methods("GET")
	api.HandleFunc("/activity/{matchId}", handler.GetChatActivity).Methods("GET")
}
