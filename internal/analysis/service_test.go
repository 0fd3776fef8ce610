package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pairplan/pairplan-backend/internal/compat"
	"github.com/pairplan/pairplan-backend/internal/retry"
	"github.com/pairplan/pairplan-backend/internal/session"
	"github.com/pairplan/pairplan-backend/internal/venues"
)

type mockSessions struct {
	mu     sync.Mutex
	sess   *session.Session
	scores []float64
}

func (m *mockSessions) GetSession(ctx context.Context, sessionID uuid.UUID, userID int64) (*session.Session, error) {
	return m.sess, nil
}

func (m *mockSessions) SetCompatibilityScore(ctx context.Context, sessionID uuid.UUID, score float64) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, score)
	updated := *m.sess
	updated.CompatibilityScore = &score
	return &updated, nil
}

func (m *mockSessions) persistedScores() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.scores...)
}

type mockScorer struct {
	mu      sync.Mutex
	calls   int
	result  *compat.Result
	err     error
	release chan struct{} // when set, Score blocks until closed
}

func (m *mockScorer) Score(ctx context.Context, a, b *session.PreferenceSet) (*compat.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.result, m.err
}

func (m *mockScorer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockSearcher struct {
	mu     sync.Mutex
	calls  int
	venues []venues.CandidateVenue
	err    error
}

func (m *mockSearcher) Search(ctx context.Context, q venues.Query) ([]venues.CandidateVenue, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.venues, m.err
}

func (m *mockSearcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testSession(t *testing.T) *session.Session {
	t.Helper()

	prefs := func(cuisines ...string) json.RawMessage {
		raw, err := json.Marshal(&session.PreferenceSet{
			Cuisines:   cuisines,
			PriceTiers: []string{"$$"},
			Vibes:      []string{"romantic"},
		})
		if err != nil {
			t.Fatalf("marshal preferences: %v", err)
		}
		return raw
	}

	return &session.Session{
		ID:                           uuid.New(),
		InitiatorID:                  1,
		PartnerID:                    2,
		Status:                       session.StatusActive,
		InitiatorPreferencesComplete: true,
		PartnerPreferencesComplete:   true,
		BothPreferencesComplete:      true,
		InitiatorPreferences:         prefs("Italian", "Japanese"),
		PartnerPreferences:           prefs("Italian", "Mexican"),
	}
}

func testCandidates() []venues.CandidateVenue {
	rating := 4.5
	return []venues.CandidateVenue{
		{SourceIDs: []string{"v-1"}, Name: "Luigi's Trattoria", Category: "italian", Rating: &rating},
		{SourceIDs: []string{"v-2"}, Name: "Sakura Sushi", Category: "japanese"},
		{SourceIDs: []string{"v-3"}, Name: "El Farolito", Category: "mexican"},
	}
}

func testConfig() Config {
	return Config{
		RetryPolicy:   retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond},
		ScorerTimeout: time.Second,
		DefaultRadius: 5,
	}
}

func newTestService(sessions *mockSessions, primary compat.Scorer, searcher VenueSearcher) *Service {
	return NewService(
		sessions,
		session.NewFlowTracker(),
		primary,
		compat.NewFallbackScorer(),
		nil,
		searcher,
		venues.NewRanker(10),
		testConfig(),
	)
}

func TestAnalyzeProducesScoreAndRecommendations(t *testing.T) {
	sessions := &mockSessions{sess: testSession(t)}
	primary := &mockScorer{result: &compat.Result{OverallScore: 0.82}}
	searcher := &mockSearcher{venues: testCandidates()}

	svc := newTestService(sessions, primary, searcher)

	outcome, err := svc.Analyze(context.Background(), sessions.sess.ID, 1, Location{Latitude: 40.7, Longitude: -74.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Compatibility == nil || outcome.Compatibility.OverallScore != 0.82 {
		t.Errorf("expected the external scorer's result, got %+v", outcome.Compatibility)
	}
	if len(outcome.Recommendations) != 3 {
		t.Errorf("expected 3 recommendations, got %d", len(outcome.Recommendations))
	}
	if outcome.VenueFailure != "" {
		t.Errorf("expected no venue failure, got %q", outcome.VenueFailure)
	}

	scores := sessions.persistedScores()
	if len(scores) != 1 || scores[0] != 0.82 {
		t.Errorf("expected the score persisted once, got %v", scores)
	}
}

func TestAnalyzeConcurrentRunRejected(t *testing.T) {
	sessions := &mockSessions{sess: testSession(t)}
	release := make(chan struct{})
	primary := &mockScorer{result: &compat.Result{OverallScore: 0.5}, release: release}
	searcher := &mockSearcher{venues: testCandidates()}

	svc := newTestService(sessions, primary, searcher)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Analyze(context.Background(), sessions.sess.ID, 1, Location{})
		done <- err
	}()

	// Wait for the first run to take the in-flight slot
	deadline := time.After(time.Second)
	for primary.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first analysis never started")
		case <-time.After(time.Millisecond):
		}
	}

	_, err := svc.Analyze(context.Background(), sessions.sess.ID, 2, Location{})
	if !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("expected ErrAnalysisInProgress for the concurrent request, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first analysis failed: %v", err)
	}

	// The slot is free again once the run finishes
	if _, err := svc.Analyze(context.Background(), sessions.sess.ID, 1, Location{}); err != nil {
		t.Fatalf("follow-up analysis failed: %v", err)
	}
}

func TestAnalyzeFallsBackWhenExternalScorerFails(t *testing.T) {
	sessions := &mockSessions{sess: testSession(t)}
	primary := &mockScorer{err: compat.ErrScoringUnavailable}
	searcher := &mockSearcher{venues: testCandidates()}

	svc := newTestService(sessions, primary, searcher)

	outcome, err := svc.Analyze(context.Background(), sessions.sess.ID, 1, Location{})
	if err != nil {
		t.Fatalf("scoring must never fail outright: %v", err)
	}

	if primary.callCount() != 2 {
		t.Errorf("expected the external scorer retried, got %d calls", primary.callCount())
	}
	// Shared Italian cuisine and the romantic vibe guarantee a nonzero
	// deterministic score
	if outcome.Compatibility == nil || outcome.Compatibility.OverallScore <= 0 {
		t.Errorf("expected a deterministic fallback score, got %+v", outcome.Compatibility)
	}
	if len(sessions.persistedScores()) != 1 {
		t.Errorf("fallback score must still be persisted")
	}
}

func TestAnalyzePartialWhenVenueSearchFails(t *testing.T) {
	sessions := &mockSessions{sess: testSession(t)}
	primary := &mockScorer{result: &compat.Result{OverallScore: 0.7}}
	searcher := &mockSearcher{err: venues.ErrSearchFailed}

	svc := newTestService(sessions, primary, searcher)

	outcome, err := svc.Analyze(context.Background(), sessions.sess.ID, 1, Location{})
	if err != nil {
		t.Fatalf("a venue outage must not fail the whole analysis: %v", err)
	}

	if outcome.Compatibility == nil || outcome.Compatibility.OverallScore != 0.7 {
		t.Errorf("score must survive the venue failure, got %+v", outcome.Compatibility)
	}
	if outcome.VenueFailure != VenueFailureTransient {
		t.Errorf("expected transient venue failure, got %q", outcome.VenueFailure)
	}
	if len(outcome.Recommendations) != 0 {
		t.Errorf("expected no recommendations, got %d", len(outcome.Recommendations))
	}
	if searcher.callCount() != 2 {
		t.Errorf("transient search failures should be retried, got %d calls", searcher.callCount())
	}
	if len(sessions.persistedScores()) != 1 {
		t.Errorf("score must still be persisted on a partial outcome")
	}
}

func TestAnalyzeStructuralVenueFailureNotRetried(t *testing.T) {
	sessions := &mockSessions{sess: testSession(t)}
	primary := &mockScorer{result: &compat.Result{OverallScore: 0.7}}
	searcher := &mockSearcher{err: venues.ErrNoVenuesMatched}

	svc := newTestService(sessions, primary, searcher)

	outcome, err := svc.Analyze(context.Background(), sessions.sess.ID, 1, Location{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.VenueFailure != VenueFailureNoMatches {
		t.Errorf("expected no-matches failure, got %q", outcome.VenueFailure)
	}
	if searcher.callCount() != 1 {
		t.Errorf("a structural failure must not be retried, got %d calls", searcher.callCount())
	}
}

func TestAnalyzeRejectsIncompletePreferences(t *testing.T) {
	sess := testSession(t)
	sess.BothPreferencesComplete = false
	sess.PartnerPreferencesComplete = false
	sess.PartnerPreferences = nil

	svc := newTestService(&mockSessions{sess: sess}, &mockScorer{result: &compat.Result{}}, &mockSearcher{})

	_, err := svc.Analyze(context.Background(), sess.ID, 1, Location{})
	if !errors.Is(err, session.ErrPreferencesIncomplete) {
		t.Fatalf("expected ErrPreferencesIncomplete, got %v", err)
	}
}

func TestVenueLookupAndClear(t *testing.T) {
	sessions := &mockSessions{sess: testSession(t)}
	primary := &mockScorer{result: &compat.Result{OverallScore: 0.6}}
	searcher := &mockSearcher{venues: testCandidates()}

	svc := newTestService(sessions, primary, searcher)

	if _, err := svc.Analyze(context.Background(), sessions.sess.ID, 1, Location{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	venue, ok := svc.Venue(sessions.sess.ID, "v-2")
	if !ok || venue.Name != "Sakura Sushi" {
		t.Errorf("expected lookup by id to succeed, got %v %v", venue, ok)
	}
	if _, ok := svc.Venue(sessions.sess.ID, "bogus"); ok {
		t.Error("unknown venue ids must not resolve")
	}

	svc.Clear(sessions.sess.ID)
	if _, ok := svc.Venue(sessions.sess.ID, "v-2"); ok {
		t.Error("cleared sessions must not resolve venues")
	}
}
