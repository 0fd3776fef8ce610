// Package venues aggregates candidate venues from multiple external sources,
// deduplicates them, and ranks the survivors against both participants'
// preferences.
package venues

import "errors"

var (
	// ErrSearchFailed marks a transient aggregation failure (upstream
	// outage); callers may retry.
	ErrSearchFailed = errors.New("venue search failed, try again")
	// ErrNoVenuesMatched marks a structural miss: sources answered but too
	// few candidates survived the filters. Retrying will not help.
	ErrNoVenuesMatched = errors.New("no venues matched your preferences here")
)

// Query is a geographic search plus the union of both participants'
// constraints
type Query struct {
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	RadiusKm   float64  `json:"radius_km"`
	Categories []string `json:"categories"`
	PriceTiers []string `json:"price_tiers"`
	Vibes      []string `json:"vibes"`
	// Per-source cap on returned records
	Limit int `json:"limit"`
}

// RawVenue is one source's record, pre-merge. Identifiers are
// provider-specific.
type RawVenue struct {
	SourceID  string   `json:"source_id"`
	Source    string   `json:"source"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	PriceTier *string  `json:"price_tier,omitempty"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
	OpenNow   *bool    `json:"open_now,omitempty"`
	PhotoCount int     `json:"photo_count"`
	Hours     *string  `json:"hours,omitempty"`
}

// CandidateVenue is a post-aggregation record. Merging duplicates folds
// their origin ids into SourceIDs and unions their tags. Produced fresh per
// search; not persisted beyond the recommendation response.
type CandidateVenue struct {
	SourceIDs  []string `json:"source_ids"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	PriceTier  *string  `json:"price_tier,omitempty"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	OpenNow    *bool    `json:"open_now,omitempty"`
	PhotoCount int      `json:"photo_count"`
	Hours      *string  `json:"hours,omitempty"`
}

// ID is the candidate's stable identifier: its first (primary) source id
func (c *CandidateVenue) ID() string {
	if len(c.SourceIDs) == 0 {
		return ""
	}
	return c.SourceIDs[0]
}

// MatchFactors records which sub-matches fired for a recommendation
type MatchFactors struct {
	CuisineMatch bool     `json:"cuisine_match"`
	PriceMatch   bool     `json:"price_match"`
	SharedVibes  []string `json:"shared_vibes"`
	OpenNow      bool     `json:"open_now"`
}

// RankedRecommendation is a scored venue surfaced to participants for
// selection
type RankedRecommendation struct {
	VenueID    string       `json:"venue_id"`
	Name       string       `json:"name"`
	Address    string       `json:"address"`
	AIScore    float64      `json:"ai_score"`
	Rating     *float64     `json:"rating,omitempty"`
	PriceTier  *string      `json:"price_tier,omitempty"`
	Category   string       `json:"category"`
	Factors    MatchFactors `json:"match_factors"`
	Reasoning  string       `json:"reasoning"`
	Confidence float64      `json:"confidence"`
}
