// Package analysis orchestrates the heavy step of a planning session: scoring
// the pair's compatibility and producing ranked venue recommendations. The two
// legs run concurrently; a venue outage never discards a computed score.
package analysis

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pairplan/pairplan-backend/internal/compat"
	"github.com/pairplan/pairplan-backend/internal/retry"
	"github.com/pairplan/pairplan-backend/internal/session"
	"github.com/pairplan/pairplan-backend/internal/venues"
)

// ErrAnalysisInProgress rejects a second analysis request while one is
// already running for the same session
var ErrAnalysisInProgress = errors.New("analysis already in progress for this session")

// Venue failure kinds surfaced in a partial outcome
const (
	VenueFailureTransient = "search_failed"
	VenueFailureNoMatches = "no_matches"
)

// SessionService is the slice of the session layer the orchestrator needs
type SessionService interface {
	GetSession(ctx context.Context, sessionID uuid.UUID, userID int64) (*session.Session, error)
	SetCompatibilityScore(ctx context.Context, sessionID uuid.UUID, score float64) (*session.Session, error)
}

// VenueSearcher is implemented by the venue aggregator
type VenueSearcher interface {
	Search(ctx context.Context, q venues.Query) ([]venues.CandidateVenue, error)
}

// ResultCache stores compatibility results per pair. Implemented by the
// compat cache; nil means cache-off.
type ResultCache interface {
	Get(ctx context.Context, userA, userB int64) (*compat.Result, error)
	Set(ctx context.Context, userA, userB int64, result *compat.Result) error
}

// Config bundles the orchestrator's tunables
type Config struct {
	RetryPolicy   retry.Policy
	ScorerTimeout time.Duration
	DefaultRadius float64
}

// Outcome is the result of one analysis run. Compatibility is always present;
// Recommendations may be absent with VenueFailure set when the venue leg
// failed after the score was computed.
type Outcome struct {
	SessionID       uuid.UUID                     `json:"session_id"`
	Compatibility   *compat.Result                `json:"compatibility"`
	Recommendations []venues.RankedRecommendation `json:"recommendations,omitempty"`
	VenueFailure    string                        `json:"venue_failure,omitempty"`
}

type Service struct {
	sessions SessionService
	flows    *session.FlowTracker
	primary  compat.Scorer // nil when no external scorer is configured
	fallback compat.Scorer
	cache    ResultCache
	searcher VenueSearcher
	ranker   *venues.Ranker
	cfg      Config

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool

	recsMu sync.RWMutex
	recs   map[uuid.UUID][]venues.RankedRecommendation
}

func NewService(sessions SessionService, flows *session.FlowTracker, primary, fallback compat.Scorer, cache ResultCache, searcher VenueSearcher, ranker *venues.Ranker, cfg Config) *Service {
	return &Service{
		sessions: sessions,
		flows:    flows,
		primary:  primary,
		fallback: fallback,
		cache:    cache,
		searcher: searcher,
		ranker:   ranker,
		cfg:      cfg,
		inFlight: make(map[uuid.UUID]bool),
		recs:     make(map[uuid.UUID][]venues.RankedRecommendation),
	}
}

// Analyze scores the pair and refreshes the session's recommendation set.
// One run per session at a time; a concurrent request gets
// ErrAnalysisInProgress rather than queueing.
func (s *Service) Analyze(ctx context.Context, sessionID uuid.UUID, userID int64, loc Location) (*Outcome, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusActive {
		return nil, session.ErrSessionNotActive
	}
	if !sess.BothPreferencesComplete {
		return nil, session.ErrPreferencesIncomplete
	}

	if !s.begin(sessionID) {
		return nil, ErrAnalysisInProgress
	}
	defer s.end(sessionID)

	initiatorPrefs, err := sess.PreferencesFor(sess.InitiatorID)
	if err != nil {
		return nil, err
	}
	partnerPrefs, err := sess.PreferencesFor(sess.PartnerID)
	if err != nil {
		return nil, err
	}
	if initiatorPrefs == nil || partnerPrefs == nil {
		return nil, session.ErrPreferencesIncomplete
	}

	var (
		wg         sync.WaitGroup
		result     *compat.Result
		candidates []venues.CandidateVenue
		venueErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		result = s.score(ctx, sess, initiatorPrefs, partnerPrefs)
	}()
	go func() {
		defer wg.Done()
		candidates, venueErr = s.search(ctx, initiatorPrefs, partnerPrefs, loc)
	}()
	wg.Wait()

	if _, err := s.sessions.SetCompatibilityScore(ctx, sessionID, result.OverallScore); err != nil {
		recordAnalysis("persist_failed")
		return nil, err
	}

	outcome := &Outcome{SessionID: sessionID, Compatibility: result}

	if venueErr != nil {
		// Partial outcome: the score stands, the previous recommendation set
		// (if any) stays valid, only the refresh is reported as failed.
		recordAnalysis("partial")
		log.Printf("venue leg failed for session %s: %v", sessionID, venueErr)
		if errors.Is(venueErr, venues.ErrNoVenuesMatched) {
			outcome.VenueFailure = VenueFailureNoMatches
		} else {
			outcome.VenueFailure = VenueFailureTransient
		}
		return outcome, nil
	}

	merged := mergedPreferences(initiatorPrefs, partnerPrefs)
	ranked := s.ranker.Rank(candidates, merged, result.OverallScore)
	s.storeRecommendations(sessionID, ranked)

	recordAnalysis("ok")
	outcome.Recommendations = ranked
	return outcome, nil
}

func (s *Service) begin(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sessionID] {
		return false
	}
	s.inFlight[sessionID] = true
	return true
}

func (s *Service) end(sessionID uuid.UUID) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}

// score never fails: the external scorer is retried, then the deterministic
// fallback takes over. Cache hits skip scoring entirely.
func (s *Service) score(ctx context.Context, sess *session.Session, a, b *session.PreferenceSet) *compat.Result {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, sess.InitiatorID, sess.PartnerID); err == nil && cached != nil {
			return cached
		}
	}

	var result *compat.Result
	if s.primary != nil {
		scored, err := retry.Do(ctx, s.cfg.RetryPolicy, func(ctx context.Context) (*compat.Result, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.ScorerTimeout)
			defer cancel()
			return s.primary.Score(attemptCtx, a, b)
		})
		if err == nil {
			result = scored
		} else {
			log.Printf("external scorer failed for session %s, using fallback: %v", sess.ID, err)
		}
	}

	if result == nil {
		recordScorerFallback()
		fallback, err := s.fallback.Score(ctx, a, b)
		if err != nil {
			// The deterministic scorer has no failure modes in practice; a
			// neutral result keeps the contract that scoring never fails
			log.Printf("fallback scorer error for session %s: %v", sess.ID, err)
			fallback = &compat.Result{}
		}
		result = fallback
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sess.InitiatorID, sess.PartnerID, result); err != nil {
			log.Printf("compat cache write failed for session %s: %v", sess.ID, err)
		}
	}
	return result
}

// search retries transient aggregation failures; a healthy-but-empty result
// is structural and returned immediately
func (s *Service) search(ctx context.Context, a, b *session.PreferenceSet, loc Location) ([]venues.CandidateVenue, error) {
	q := s.buildQuery(a, b, loc)

	return retry.Do(ctx, s.cfg.RetryPolicy, func(ctx context.Context) ([]venues.CandidateVenue, error) {
		got, err := s.searcher.Search(ctx, q)
		if errors.Is(err, venues.ErrNoVenuesMatched) {
			return nil, retry.Permanent(err)
		}
		return got, err
	})
}

func (s *Service) buildQuery(a, b *session.PreferenceSet, loc Location) venues.Query {
	radius := s.cfg.DefaultRadius
	// The stricter of the two distance caps wins
	for _, max := range []float64{a.MaxDistanceKm, b.MaxDistanceKm} {
		if max > 0 && max < radius {
			radius = max
		}
	}

	return venues.Query{
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		RadiusKm:   radius,
		Categories: unionFold(a.Cuisines, b.Cuisines),
		PriceTiers: unionFold(a.PriceTiers, b.PriceTiers),
		Vibes:      unionFold(a.Vibes, b.Vibes),
	}
}

func (s *Service) storeRecommendations(sessionID uuid.UUID, ranked []venues.RankedRecommendation) {
	s.recsMu.Lock()
	s.recs[sessionID] = ranked
	s.recsMu.Unlock()

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.VenueID)
	}
	// A refreshed set may have dropped someone's provisional pick
	s.flows.RecommendationsRefreshed(sessionID, ids)
}

// Recommendations returns the last ranked set produced for the session
func (s *Service) Recommendations(sessionID uuid.UUID) []venues.RankedRecommendation {
	s.recsMu.RLock()
	defer s.recsMu.RUnlock()
	return s.recs[sessionID]
}

// Venue looks a recommendation up by id in the session's current set
func (s *Service) Venue(sessionID uuid.UUID, venueID string) (session.VenueSummary, bool) {
	s.recsMu.RLock()
	defer s.recsMu.RUnlock()

	for _, r := range s.recs[sessionID] {
		if r.VenueID == venueID {
			return session.VenueSummary{ID: r.VenueID, Name: r.Name, Address: r.Address}, true
		}
	}
	return session.VenueSummary{}, false
}

// Clear drops the session's recommendation set
func (s *Service) Clear(sessionID uuid.UUID) {
	s.recsMu.Lock()
	delete(s.recs, sessionID)
	s.recsMu.Unlock()
}

// mergedPreferences is the union view the ranker scores against
func mergedPreferences(a, b *session.PreferenceSet) venues.MergedPreferences {
	return venues.MergedPreferences{
		Cuisines:   unionFold(a.Cuisines, b.Cuisines),
		PriceTiers: unionFold(a.PriceTiers, b.PriceTiers),
		Vibes:      unionFold(a.Vibes, b.Vibes),
	}
}

func unionFold(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			key := foldKey(v)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

func foldKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
