package session

import (
	"testing"

	"github.com/google/uuid"
)

func trackedSession() *Session {
	return &Session{ID: uuid.New(), InitiatorID: 1, PartnerID: 2, Status: StatusActive}
}

func TestFlowStartsAtSelectPartner(t *testing.T) {
	tracker := NewFlowTracker()
	if step := tracker.Step(uuid.New(), 1); step != StepSelectPartner {
		t.Errorf("unknown flows must start at select-partner, got %s", step)
	}
}

func TestFlowAdvancesThroughAllSteps(t *testing.T) {
	tracker := NewFlowTracker()
	sess := trackedSession()

	tracker.SessionReady(sess)
	for _, userID := range []int64{1, 2} {
		if step := tracker.Step(sess.ID, userID); step != StepSetPreferences {
			t.Errorf("user %d: expected set-preferences after session ready, got %s", userID, step)
		}
	}

	tracker.ScoreReady(sess)
	for _, userID := range []int64{1, 2} {
		if step := tracker.Step(sess.ID, userID); step != StepReviewMatches {
			t.Errorf("user %d: expected review-matches after scoring, got %s", userID, step)
		}
	}

	tracker.VenueChosen(sess.ID, 1, "v-1")
	if step := tracker.Step(sess.ID, 1); step != StepCreateInvitation {
		t.Errorf("expected create-invitation after choosing, got %s", step)
	}
	if tracker.SelectedVenue(sess.ID, 1) != "v-1" {
		t.Error("expected the provisional pick recorded")
	}
	// The other participant is unaffected by one side's pick
	if step := tracker.Step(sess.ID, 2); step != StepReviewMatches {
		t.Errorf("partner must stay at review-matches, got %s", step)
	}
}

func TestScoreReadyOnlyFiresFromSetPreferences(t *testing.T) {
	tracker := NewFlowTracker()
	sess := trackedSession()

	tracker.SessionReady(sess)
	tracker.ScoreReady(sess)
	tracker.VenueChosen(sess.ID, 1, "v-1")

	// A re-score must not drag the chooser back from create-invitation
	tracker.ScoreReady(sess)
	if step := tracker.Step(sess.ID, 1); step != StepCreateInvitation {
		t.Errorf("re-scoring must not regress a chooser, got %s", step)
	}
}

func TestRecommendationsRefreshedClearsVanishedPick(t *testing.T) {
	tracker := NewFlowTracker()
	sess := trackedSession()

	tracker.SessionReady(sess)
	tracker.ScoreReady(sess)
	tracker.VenueChosen(sess.ID, 1, "v-old")
	tracker.VenueChosen(sess.ID, 2, "v-kept")

	tracker.RecommendationsRefreshed(sess.ID, []string{"v-kept", "v-new"})

	// The vanished pick is dropped and its holder forced back
	if got := tracker.SelectedVenue(sess.ID, 1); got != "" {
		t.Errorf("expected vanished pick cleared, got %q", got)
	}
	if step := tracker.Step(sess.ID, 1); step != StepReviewMatches {
		t.Errorf("expected forced back to review-matches, got %s", step)
	}

	// The surviving pick is untouched
	if got := tracker.SelectedVenue(sess.ID, 2); got != "v-kept" {
		t.Errorf("surviving pick must be kept, got %q", got)
	}
	if step := tracker.Step(sess.ID, 2); step != StepCreateInvitation {
		t.Errorf("surviving chooser must stay put, got %s", step)
	}
}

func TestResetReturnsToSelectPartner(t *testing.T) {
	tracker := NewFlowTracker()
	sess := trackedSession()

	tracker.SessionReady(sess)
	tracker.ScoreReady(sess)
	tracker.VenueChosen(sess.ID, 1, "v-1")

	tracker.Reset(sess.ID, 1)

	if step := tracker.Step(sess.ID, 1); step != StepSelectPartner {
		t.Errorf("reset must return to select-partner, got %s", step)
	}
	if tracker.SelectedVenue(sess.ID, 1) != "" {
		t.Error("reset must discard the provisional pick")
	}
	// Reset is per participant
	if step := tracker.Step(sess.ID, 2); step != StepReviewMatches {
		t.Errorf("the other participant's flow must be untouched, got %s", step)
	}
}

func TestForgetDropsAllSessionFlows(t *testing.T) {
	tracker := NewFlowTracker()
	sess := trackedSession()

	tracker.SessionReady(sess)
	tracker.ScoreReady(sess)
	tracker.Forget(sess.ID)

	for _, userID := range []int64{1, 2} {
		if step := tracker.Step(sess.ID, userID); step != StepSelectPartner {
			t.Errorf("user %d: expected flow state dropped, got %s", userID, step)
		}
	}
}
