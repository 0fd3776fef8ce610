package session

import (
	"sync"

	"github.com/google/uuid"
)

// Step is the four-stage planning flow, orthogonal to the persisted
// active/completed/expired status.
type Step string

const (
	StepSelectPartner    Step = "select-partner"
	StepSetPreferences   Step = "set-preferences"
	StepReviewMatches    Step = "review-matches"
	StepCreateInvitation Step = "create-invitation"
)

type flowKey struct {
	sessionID uuid.UUID
	userID    int64
}

type flow struct {
	step            Step
	selectedVenueID string
}

// FlowTracker derives each participant's current step from session events.
// Resetting abandons the local view only; the persisted session is untouched.
type FlowTracker struct {
	mu    sync.RWMutex
	flows map[flowKey]*flow
}

func NewFlowTracker() *FlowTracker {
	return &FlowTracker{flows: make(map[flowKey]*flow)}
}

func (t *FlowTracker) get(sessionID uuid.UUID, userID int64) *flow {
	key := flowKey{sessionID, userID}
	f, ok := t.flows[key]
	if !ok {
		f = &flow{step: StepSelectPartner}
		t.flows[key] = f
	}
	return f
}

// Step returns the participant's current step
func (t *FlowTracker) Step(sessionID uuid.UUID, userID int64) Step {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if f, ok := t.flows[flowKey{sessionID, userID}]; ok {
		return f.step
	}
	return StepSelectPartner
}

// SelectedVenue returns the participant's provisional pick, if any
func (t *FlowTracker) SelectedVenue(sessionID uuid.UUID, userID int64) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if f, ok := t.flows[flowKey{sessionID, userID}]; ok {
		return f.selectedVenueID
	}
	return ""
}

// SessionReady fires select-partner -> set-preferences for both participants
// once a session exists (created or reused) for the chosen partner
func (t *FlowTracker) SessionReady(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, userID := range []int64{s.InitiatorID, s.PartnerID} {
		f := t.get(s.ID, userID)
		if f.step == StepSelectPartner {
			f.step = StepSetPreferences
		}
	}
}

// ScoreReady fires set-preferences -> review-matches for both participants.
// This is system-driven: it runs when scoring completes, not on a user action.
func (t *FlowTracker) ScoreReady(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, userID := range []int64{s.InitiatorID, s.PartnerID} {
		f := t.get(s.ID, userID)
		if f.step == StepSetPreferences {
			f.step = StepReviewMatches
		}
	}
}

// VenueChosen fires review-matches -> create-invitation. Validation that the
// venue exists in the current recommendation set happens before this call.
func (t *FlowTracker) VenueChosen(sessionID uuid.UUID, userID int64, venueID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f := t.get(sessionID, userID)
	f.selectedVenueID = venueID
	f.step = StepCreateInvitation
}

// RecommendationsRefreshed clears any provisional pick that vanished from a
// refreshed recommendation set and forces that participant back to
// review-matches.
func (t *FlowTracker) RecommendationsRefreshed(sessionID uuid.UUID, venueIDs []string) {
	present := make(map[string]bool, len(venueIDs))
	for _, id := range venueIDs {
		present[id] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, f := range t.flows {
		if key.sessionID != sessionID || f.selectedVenueID == "" {
			continue
		}
		if !present[f.selectedVenueID] {
			f.selectedVenueID = ""
			f.step = StepReviewMatches
		}
	}
}

// Reset is the explicit "start over": back to select-partner, discarding the
// local selection. Any step may reset.
func (t *FlowTracker) Reset(sessionID uuid.UUID, userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := flowKey{sessionID, userID}
	t.flows[key] = &flow{step: StepSelectPartner}
}

// Forget drops all flow state for a session (used when a session leaves the
// active status)
func (t *FlowTracker) Forget(sessionID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.flows {
		if key.sessionID == sessionID {
			delete(t.flows, key)
		}
	}
}
