package matchmaking

import (
	"github.com/gorilla/mux"

	"github.com/onematch/onematch-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/matches").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/daily", handler.GetDailyMatch).Methods("GET")
	api.HandleFunc("/state", handler.GetState).Methods("GET")
	api.HandleFunc("/{id}", handler.GetMatch).Methods("GET")
	api.HandleFunc("/{id}/pin", handler.PinMatch).Methods("PUT")
	api.HandleFunc("/{id}/unpin", handler.UnpinMatch).Methods("PUT")
}
