package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pairplan/pairplan-backend/internal/auth"
	"github.com/pairplan/pairplan-backend/internal/common/utils"
)

type Handler struct {
	service Service
	hub     *Hub
}

func NewHandler(service Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var dto CreateSessionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.service.CreateSession(r.Context(), userID, dto.PartnerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, sess)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	sess, err := h.service.GetSession(r.Context(), sessionID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, sess)
}

func (h *Handler) GetActiveSession(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	partnerID, err := strconv.ParseInt(r.URL.Query().Get("partner_id"), 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid partner_id")
		return
	}

	sess, err := h.service.ActiveSessionForPair(r.Context(), userID, partnerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, sess)
}

func (h *Handler) SubmitPreferences(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	var dto SubmitPreferencesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.service.SubmitPreferences(r.Context(), sessionID, userID, dto.ToPreferenceSet())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, sess)
}

func (h *Handler) SelectVenue(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	var dto SelectVenueDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.service.SelectVenue(r.Context(), sessionID, userID, dto.VenueID, dto.Message)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, sess)
}

func (h *Handler) GetStep(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	view, err := h.service.StepOf(r.Context(), sessionID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) ResetFlow(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	view, err := h.service.ResetFlow(r.Context(), sessionID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, view)
}

// Subscribe upgrades to a websocket stream of session updates
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	// Membership check before the upgrade
	if _, err := h.service.GetSession(r.Context(), sessionID, userID); err != nil {
		respondServiceError(w, err)
		return
	}

	h.hub.ServeWS(w, r, sessionID, userID)
}

// requestIdentity extracts the authenticated participant and the session id
// from the request, writing the error response itself on failure
func (h *Handler) requestIdentity(w http.ResponseWriter, r *http.Request) (int64, uuid.UUID, bool) {
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

// respondServiceError maps service sentinels to HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotParticipant):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrSameParticipant):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSessionNotActive):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrPreferencesIncomplete):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidVenueSelection):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
