package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Session statuses. Transitions are one-way: active -> completed or
// active -> expired, never backward.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
)

// Participant roles within a session
const (
	RoleInitiator = "initiator"
	RolePartner   = "partner"
)

// Session is the persistent record of one two-party planning collaboration.
// It is the only mutable state shared between the two participants; every
// write goes through the service so the hub has one authoritative change
// to broadcast.
type Session struct {
	ID          uuid.UUID `json:"id" db:"id"`
	InitiatorID int64     `json:"initiator_id" db:"initiator_id"`
	PartnerID   int64     `json:"partner_id" db:"partner_id"`
	Status      string    `json:"status" db:"status"`

	InitiatorPreferencesComplete bool `json:"initiator_preferences_complete" db:"initiator_preferences_complete"`
	PartnerPreferencesComplete   bool `json:"partner_preferences_complete" db:"partner_preferences_complete"`
	// Derived from the two flags above, recomputed in the same UPDATE that
	// changes either of them. Never writable by a client.
	BothPreferencesComplete bool `json:"both_preferences_complete" db:"both_preferences_complete"`

	InitiatorPreferences json.RawMessage `json:"initiator_preferences,omitempty" db:"initiator_preferences"`
	PartnerPreferences   json.RawMessage `json:"partner_preferences,omitempty" db:"partner_preferences"`

	CompatibilityScore *float64 `json:"compatibility_score,omitempty" db:"compatibility_score"`
	SelectedVenueID    *string  `json:"selected_venue_id,omitempty" db:"selected_venue_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	// Fixed at creation (24h horizon), not extended by activity
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// PreferenceSet is one participant's stated constraints for the outing.
// Immutable once submitted; a resubmission overwrites only that
// participant's slot.
type PreferenceSet struct {
	Cuisines            []string `json:"cuisines"`
	PriceTiers          []string `json:"price_tiers"`
	TimesOfDay          []string `json:"times_of_day"`
	Vibes               []string `json:"vibes"`
	MaxDistanceKm       float64  `json:"max_distance_km"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
}

// IsParticipant reports whether userID is one of the session's two identities
func (s *Session) IsParticipant(userID int64) bool {
	return s.InitiatorID == userID || s.PartnerID == userID
}

// RoleOf returns the participant's role, or "" for non-participants
func (s *Session) RoleOf(userID int64) string {
	switch userID {
	case s.InitiatorID:
		return RoleInitiator
	case s.PartnerID:
		return RolePartner
	default:
		return ""
	}
}

// OtherParticipant returns the id of the other side of the session
func (s *Session) OtherParticipant(userID int64) int64 {
	if userID == s.InitiatorID {
		return s.PartnerID
	}
	return s.InitiatorID
}

// PreferencesFor unmarshals the stored preference slot for the given
// participant, or nil if that slot is empty
func (s *Session) PreferencesFor(userID int64) (*PreferenceSet, error) {
	var raw json.RawMessage
	switch s.RoleOf(userID) {
	case RoleInitiator:
		raw = s.InitiatorPreferences
	case RolePartner:
		raw = s.PartnerPreferences
	default:
		return nil, ErrNotParticipant
	}

	if len(raw) == 0 {
		return nil, nil
	}

	var prefs PreferenceSet
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// IsWaitingForPartner is advisory for presentation: this participant has
// submitted but the other side has not. It never gates data writes.
func (s *Session) IsWaitingForPartner(userID int64) bool {
	var mine, theirs bool
	switch s.RoleOf(userID) {
	case RoleInitiator:
		mine, theirs = s.InitiatorPreferencesComplete, s.PartnerPreferencesComplete
	case RolePartner:
		mine, theirs = s.PartnerPreferencesComplete, s.InitiatorPreferencesComplete
	default:
		return false
	}
	return mine && !theirs && !s.BothPreferencesComplete
}
