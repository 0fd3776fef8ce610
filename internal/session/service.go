package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Broadcaster pushes a committed session state to both participants' live
// clients. Implemented by the websocket hub.
type Broadcaster interface {
	BroadcastSession(s *Session)
}

// VenueSummary is the slice of a recommendation the session layer needs for
// selection validation and invitation building
type VenueSummary struct {
	ID      string
	Name    string
	Address string
}

// RecommendationSource exposes the last recommendation set produced for a
// session. Implemented by the analysis orchestrator.
type RecommendationSource interface {
	Venue(sessionID uuid.UUID, venueID string) (VenueSummary, bool)
	Clear(sessionID uuid.UUID)
}

// CompatCache invalidates cached compatibility results when a participant's
// preferences change materially
type CompatCache interface {
	Invalidate(ctx context.Context, userA, userB int64) error
}

// Notifier receives the finalized invitation once a session completes.
// Delivery guarantees are the notification collaborator's concern.
type Notifier interface {
	SendInvitation(ctx context.Context, s *Session, venue VenueSummary, message string) error
}

type Service interface {
	CreateSession(ctx context.Context, initiatorID, partnerID int64) (*Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID, userID int64) (*Session, error)
	ActiveSessionForPair(ctx context.Context, userID, partnerID int64) (*Session, error)
	SubmitPreferences(ctx context.Context, sessionID uuid.UUID, userID int64, prefs *PreferenceSet) (*Session, error)
	SetCompatibilityScore(ctx context.Context, sessionID uuid.UUID, score float64) (*Session, error)
	SelectVenue(ctx context.Context, sessionID uuid.UUID, userID int64, venueID, message string) (*Session, error)
	StepOf(ctx context.Context, sessionID uuid.UUID, userID int64) (*StepView, error)
	ResetFlow(ctx context.Context, sessionID uuid.UUID, userID int64) (*StepView, error)
	ExpireSessions(ctx context.Context) error

	// Wiring hooks: the hub, orchestrator, notifier and cache are built on
	// top of this service and attached after construction
	SetBroadcaster(hub Broadcaster)
	SetRecommendations(r RecommendationSource)
	SetNotifier(n Notifier)
	SetCompatCache(c CompatCache)
}

// StepView is the advisory flow state returned to one participant
type StepView struct {
	Step                Step   `json:"step"`
	IsWaitingForPartner bool   `json:"is_waiting_for_partner"`
	SelectedVenueID     string `json:"selected_venue_id,omitempty"`
}

type service struct {
	repo       Repository
	flows      *FlowTracker
	sessionTTL time.Duration

	hub         Broadcaster
	recs        RecommendationSource
	notifier    Notifier
	compatCache CompatCache
}

func NewService(repo Repository, flows *FlowTracker, sessionTTL time.Duration) Service {
	return &service{
		repo:       repo,
		flows:      flows,
		sessionTTL: sessionTTL,
	}
}

func (s *service) SetBroadcaster(hub Broadcaster)            { s.hub = hub }
func (s *service) SetRecommendations(r RecommendationSource) { s.recs = r }
func (s *service) SetNotifier(n Notifier)                    { s.notifier = n }
func (s *service) SetCompatCache(c CompatCache)              { s.compatCache = c }

func (s *service) CreateSession(ctx context.Context, initiatorID, partnerID int64) (*Session, error) {
	if initiatorID == partnerID {
		return nil, ErrSameParticipant
	}

	// Idempotent per unordered pair: reuse the active session instead of
	// creating a duplicate.
	existing, err := s.repo.GetActiveForPair(ctx, initiatorID, partnerID)
	if err != nil {
		return nil, fmt.Errorf("pair lookup failed: %w", err)
	}
	if existing != nil {
		s.flows.SessionReady(existing)
		recordSessionCreated(true)
		return existing, nil
	}

	sess := &Session{
		ID:          uuid.New(),
		InitiatorID: initiatorID,
		PartnerID:   partnerID,
		Status:      StatusActive,
		ExpiresAt:   time.Now().Add(s.sessionTTL),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session failed: %w", err)
	}

	s.flows.SessionReady(sess)
	recordSessionCreated(false)
	s.broadcast(sess)
	return sess, nil
}

func (s *service) GetSession(ctx context.Context, sessionID uuid.UUID, userID int64) (*Session, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return sess, nil
}

func (s *service) ActiveSessionForPair(ctx context.Context, userID, partnerID int64) (*Session, error) {
	sess, err := s.repo.GetActiveForPair(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *service) SubmitPreferences(ctx context.Context, sessionID uuid.UUID, userID int64, prefs *PreferenceSet) (*Session, error) {
	sess, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusActive {
		return nil, ErrSessionNotActive
	}

	raw, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}

	role := sess.RoleOf(userID)
	updated, err := s.repo.SetPreferences(ctx, sessionID, role, raw)
	if err != nil {
		return nil, err
	}

	recordPreferencesSubmitted(role)

	// A changed preference set invalidates any cached compatibility result
	// for this pair; the next analysis recomputes.
	if s.compatCache != nil {
		if err := s.compatCache.Invalidate(ctx, updated.InitiatorID, updated.PartnerID); err != nil {
			log.Printf("compat cache invalidation failed for session %s: %v", sessionID, err)
		}
	}

	s.broadcast(updated)
	return updated, nil
}

func (s *service) SetCompatibilityScore(ctx context.Context, sessionID uuid.UUID, score float64) (*Session, error) {
	updated, err := s.repo.SetCompatibilityScore(ctx, sessionID, score)
	if err != nil {
		return nil, err
	}

	RecordCompatibilityScore(score)
	// Scoring completed: auto-advance both participants to review-matches
	s.flows.ScoreReady(updated)
	s.broadcast(updated)
	return updated, nil
}

func (s *service) SelectVenue(ctx context.Context, sessionID uuid.UUID, userID int64, venueID, message string) (*Session, error) {
	sess, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusActive {
		return nil, ErrSessionNotActive
	}
	if !sess.BothPreferencesComplete || sess.CompatibilityScore == nil {
		return nil, ErrPreferencesIncomplete
	}

	if s.recs == nil {
		return nil, ErrInvalidVenueSelection
	}
	venue, ok := s.recs.Venue(sessionID, venueID)
	if !ok {
		// Session state is left untouched on a bad pick
		return nil, ErrInvalidVenueSelection
	}

	updated, err := s.repo.Complete(ctx, sessionID, venueID)
	if err != nil {
		return nil, err
	}

	s.flows.VenueChosen(sessionID, userID, venueID)
	recordSessionFinished(StatusCompleted)
	s.broadcast(updated)

	if s.notifier != nil {
		// Invitation emission must not block or fail the selection
		go func(sess *Session, venue VenueSummary, message string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.notifier.SendInvitation(ctx, sess, venue, message); err != nil {
				log.Printf("invitation delivery failed for session %s: %v", sess.ID, err)
			}
		}(updated, venue, message)
	}

	return updated, nil
}

func (s *service) StepOf(ctx context.Context, sessionID uuid.UUID, userID int64) (*StepView, error) {
	sess, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	return &StepView{
		Step:                s.flows.Step(sessionID, userID),
		IsWaitingForPartner: sess.IsWaitingForPartner(userID),
		SelectedVenueID:     s.flows.SelectedVenue(sessionID, userID),
	}, nil
}

func (s *service) ResetFlow(ctx context.Context, sessionID uuid.UUID, userID int64) (*StepView, error) {
	sess, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	// "Start over" abandons the local view only: step back to the beginning,
	// drop the provisional pick and this session's recommendations. The
	// persisted session is not deleted.
	s.flows.Reset(sessionID, userID)
	if s.recs != nil {
		s.recs.Clear(sessionID)
	}

	return &StepView{
		Step:                StepSelectPartner,
		IsWaitingForPartner: sess.IsWaitingForPartner(userID),
	}, nil
}

func (s *service) ExpireSessions(ctx context.Context) error {
	expired, err := s.repo.ExpireDue(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("expiry sweep failed: %w", err)
	}

	for _, sess := range expired {
		recordSessionFinished(StatusExpired)
		s.flows.Forget(sess.ID)
		if s.recs != nil {
			s.recs.Clear(sess.ID)
		}
		s.broadcast(sess)
	}

	if len(expired) > 0 {
		log.Printf("expired %d planning sessions", len(expired))
	}
	return nil
}

func (s *service) broadcast(sess *Session) {
	if s.hub != nil {
		s.hub.BroadcastSession(sess)
	}
}
