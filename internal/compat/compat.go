// Package compat scores how well two participants' preferences align.
// The primary scorer delegates to an external intelligence service; a
// deterministic fallback covers outages so scoring never fails outright.
package compat

import (
	"context"
	"errors"

	"github.com/pairplan/pairplan-backend/internal/session"
)

// ErrScoringUnavailable signals the external scorer could not produce a
// result. Callers recover via the deterministic fallback; this never reaches
// an end user.
var ErrScoringUnavailable = errors.New("compatibility scoring service unavailable")

// Dimension weights for the overall score. Fixed, summing to 1.
const (
	WeightCuisine  = 0.30
	WeightVibe     = 0.25
	WeightPrice    = 0.20
	WeightTiming   = 0.15
	WeightActivity = 0.10
)

// Scorer produces a compatibility result for two preference sets
type Scorer interface {
	Score(ctx context.Context, a, b *session.PreferenceSet) (*Result, error)
}

// Result is a compatibility verdict for one unordered participant pair
type Result struct {
	OverallScore float64         `json:"overall_score"`
	Dimensions   DimensionScores `json:"dimensions"`
	Factors      Factors         `json:"factors"`
}

type DimensionScores struct {
	Cuisine  float64 `json:"cuisine"`
	Vibe     float64 `json:"vibe"`
	Price    float64 `json:"price"`
	Timing   float64 `json:"timing"`
	Activity float64 `json:"activity"`
}

// Factors are the shared tags per dimension plus free-form reasoning
type Factors struct {
	SharedCuisines   []string `json:"shared_cuisines"`
	SharedVibes      []string `json:"shared_vibes"`
	SharedPriceTiers []string `json:"shared_price_tiers"`
	SharedTimes      []string `json:"shared_times"`
	SharedDietary    []string `json:"shared_dietary"`
	Reasoning        string   `json:"reasoning"`
}

// WeightedOverall recombines dimension scores with the fixed weights
func (d DimensionScores) WeightedOverall() float64 {
	return d.Cuisine*WeightCuisine +
		d.Vibe*WeightVibe +
		d.Price*WeightPrice +
		d.Timing*WeightTiming +
		d.Activity*WeightActivity
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
