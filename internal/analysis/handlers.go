package analysis

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pairplan/pairplan-backend/internal/auth"
	"github.com/pairplan/pairplan-backend/internal/common/utils"
	"github.com/pairplan/pairplan-backend/internal/session"
	"github.com/pairplan/pairplan-backend/internal/venues"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Analyze starts a scoring and recommendation run for the session
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	var dto AnalyzeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.service.Analyze(r.Context(), sessionID, userID, dto.ToLocation())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, outcome)
}

// GetRecommendations returns the session's last ranked recommendation set
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	// Membership check before exposing the set
	if _, err := h.service.sessions.GetSession(r.Context(), sessionID, userID); err != nil {
		respondServiceError(w, err)
		return
	}

	recs := h.service.Recommendations(sessionID)
	if recs == nil {
		recs = []venues.RankedRecommendation{}
	}
	utils.RespondWithJSON(w, http.StatusOK, recs)
}

func requestIdentity(w http.ResponseWriter, r *http.Request) (int64, uuid.UUID, bool) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
		return 0, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid session ID")
		return 0, uuid.Nil, false
	}

	return userID, sessionID, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAnalysisInProgress):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrSessionNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotParticipant):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrSessionNotActive):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrPreferencesIncomplete):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
