package analysis

import (
	"github.com/gorilla/mux"
	"github.com/pairplan/pairplan-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/sessions").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/{id}/analysis", handler.Analyze).Methods("POST")
	api.HandleFunc("/{id}/recommendations", handler.GetRecommendations).Methods("GET")
}
