package venues

import (
	"fmt"
	"sort"
	"strings"
)

// Score weights for the 0-100 ranking scale
const (
	compatWeight  = 15.0
	cuisineWeight = 30.0
	priceWeight   = 15.0
	vibeWeight    = 20.0
	ratingWeight  = 15.0
	openNowBonus  = 5.0
)

// MergedPreferences is the union of both participants' constraints, the
// ranker's view of what the pair wants
type MergedPreferences struct {
	Cuisines   []string
	PriceTiers []string
	Vibes      []string
}

// Ranker scores candidates against the pair's merged preferences and their
// compatibility, producing an ordered, capped list
type Ranker struct {
	maxResults int
}

func NewRanker(maxResults int) *Ranker {
	return &Ranker{maxResults: maxResults}
}

// Rank computes a 0-100 score per candidate and orders the output by score
// descending, breaking ties by rating descending, then by source order.
// Re-running on unchanged input yields an identical order.
func (r *Ranker) Rank(candidates []CandidateVenue, prefs MergedPreferences, compatScore float64) []RankedRecommendation {
	ranked := make([]RankedRecommendation, 0, len(candidates))

	for i := range candidates {
		ranked = append(ranked, r.scoreCandidate(&candidates[i], prefs, compatScore))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AIScore != ranked[j].AIScore {
			return ranked[i].AIScore > ranked[j].AIScore
		}
		return ratingOf(&ranked[i]) > ratingOf(&ranked[j])
	})

	if r.maxResults > 0 && len(ranked) > r.maxResults {
		ranked = ranked[:r.maxResults]
	}
	return ranked
}

func (r *Ranker) scoreCandidate(c *CandidateVenue, prefs MergedPreferences, compatScore float64) RankedRecommendation {
	score := compatScore * compatWeight
	factors := MatchFactors{}
	var reasons []string

	if cuisine, ok := matchedCuisine(c, prefs.Cuisines); ok {
		score += cuisineWeight
		factors.CuisineMatch = true
		reasons = append(reasons, fmt.Sprintf("Perfect cuisine match with %s.", cuisine))
	}

	if c.PriceTier != nil && containsFold(prefs.PriceTiers, *c.PriceTier) {
		score += priceWeight
		factors.PriceMatch = true
		reasons = append(reasons, "Fits your price range.")
	}

	if shared := sharedTags(c.Tags, prefs.Vibes); len(shared) > 0 {
		overlap := float64(len(shared)) / float64(len(prefs.Vibes))
		score += vibeWeight * overlap
		factors.SharedVibes = shared
		reasons = append(reasons, fmt.Sprintf("Matches the %s vibe you both want.", strings.Join(shared, ", ")))
	}

	if c.Rating != nil {
		score += (*c.Rating / 5.0) * ratingWeight
		if *c.Rating >= 4.0 {
			reasons = append(reasons, fmt.Sprintf("Highly rated venue (%.1f★).", *c.Rating))
		}
	}

	if c.OpenNow != nil && *c.OpenNow {
		score += openNowBonus
		factors.OpenNow = true
		reasons = append(reasons, "Open right now.")
	}

	if score > 100 {
		score = 100
	}

	reasoning := strings.Join(reasons, " ")
	if reasoning == "" {
		// No specific sub-match fired: cite the overall percentage instead
		reasoning = fmt.Sprintf("A %d%% overall match for you two.", int(score))
	}

	return RankedRecommendation{
		VenueID:    c.ID(),
		Name:       c.Name,
		Address:    c.Address,
		AIScore:    score,
		Rating:     c.Rating,
		PriceTier:  c.PriceTier,
		Category:   c.Category,
		Factors:    factors,
		Reasoning:  reasoning,
		Confidence: confidence(c, factors),
	}
}

func confidence(c *CandidateVenue, factors MatchFactors) float64 {
	conf := 0.4
	if factors.CuisineMatch {
		conf += 0.15
	}
	if factors.PriceMatch {
		conf += 0.1
	}
	if len(factors.SharedVibes) > 0 {
		conf += 0.1
	}
	if c.Rating != nil {
		conf += 0.1
	}
	if c.Latitude != nil {
		conf += 0.05
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

func matchedCuisine(c *CandidateVenue, cuisines []string) (string, bool) {
	for _, cuisine := range cuisines {
		if strings.EqualFold(c.Category, cuisine) {
			return cuisine, true
		}
		for _, tag := range c.Tags {
			if strings.EqualFold(tag, cuisine) {
				return cuisine, true
			}
		}
	}
	return "", false
}

func sharedTags(tags, wanted []string) []string {
	var shared []string
	for _, w := range wanted {
		if containsFold(tags, w) {
			shared = append(shared, w)
		}
	}
	return shared
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

func ratingOf(r *RankedRecommendation) float64 {
	if r.Rating == nil {
		return -1
	}
	return *r.Rating
}
