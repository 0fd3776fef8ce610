package session

import (
	"github.com/gorilla/mux"
	"github.com/pairplan/pairplan-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/sessions").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.CreateSession).Methods("POST")
	api.HandleFunc("/active", handler.GetActiveSession).Methods("GET")
	api.HandleFunc("/{id}", handler.GetSession).Methods("GET")
	api.HandleFunc("/{id}/preferences", handler.SubmitPreferences).Methods("POST")
	api.HandleFunc("/{id}/venue", handler.SelectVenue).Methods("POST")
	api.HandleFunc("/{id}/step", handler.GetStep).Methods("GET")
	api.HandleFunc("/{id}/reset", handler.ResetFlow).Methods("POST")
	api.HandleFunc("/{id}/ws", handler.Subscribe).Methods("GET")
}
