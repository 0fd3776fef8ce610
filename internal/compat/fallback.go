package compat

import (
	"context"
	"fmt"
	"strings"

	"github.com/pairplan/pairplan-backend/internal/session"
)

// FallbackScorer computes compatibility from set overlap alone. It is used
// when the intelligence service is unavailable and produces the same result
// shape, so the degradation is invisible downstream.
type FallbackScorer struct{}

func NewFallbackScorer() *FallbackScorer {
	return &FallbackScorer{}
}

func (f *FallbackScorer) Score(ctx context.Context, a, b *session.PreferenceSet) (*Result, error) {
	dims := DimensionScores{
		Cuisine:  overlapScore(a.Cuisines, b.Cuisines),
		Vibe:     overlapScore(a.Vibes, b.Vibes),
		Price:    overlapScore(a.PriceTiers, b.PriceTiers),
		Timing:   overlapScore(a.TimesOfDay, b.TimesOfDay),
		Activity: dietaryScore(a.DietaryRestrictions, b.DietaryRestrictions),
	}

	factors := Factors{
		SharedCuisines:   intersect(a.Cuisines, b.Cuisines),
		SharedVibes:      intersect(a.Vibes, b.Vibes),
		SharedPriceTiers: intersect(a.PriceTiers, b.PriceTiers),
		SharedTimes:      intersect(a.TimesOfDay, b.TimesOfDay),
		SharedDietary:    intersect(a.DietaryRestrictions, b.DietaryRestrictions),
	}
	factors.Reasoning = fallbackReasoning(factors)

	return &Result{
		OverallScore: dims.WeightedOverall(),
		Dimensions:   dims,
		Factors:      factors,
	}, nil
}

// overlapScore is the Jaccard ratio |A∩B| / |A∪B|. An empty list on either
// side means no signal, which scores 0.0 rather than an assumed match.
func overlapScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	seen := make(map[string]bool, len(a))
	for _, tag := range a {
		seen[normalizeTag(tag)] = true
	}

	matches := 0
	union := len(seen)
	counted := make(map[string]bool, len(b))
	for _, tag := range b {
		key := normalizeTag(tag)
		if counted[key] {
			continue
		}
		counted[key] = true
		if seen[key] {
			matches++
		} else {
			union++
		}
	}

	if union == 0 {
		return 0.0
	}
	return float64(matches) / float64(union)
}

// dietaryScore is the exception to the overlap rule: nothing to conflict
// with is a good sign, not a missing one.
func dietaryScore(a, b []string) float64 {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 1.0
	case len(a) == 0 || len(b) == 0:
		return 0.7
	case len(intersect(a, b)) > 0:
		return 0.9
	default:
		return 0.3
	}
}

func intersect(a, b []string) []string {
	seen := make(map[string]string, len(a))
	for _, tag := range a {
		seen[normalizeTag(tag)] = tag
	}

	var shared []string
	added := make(map[string]bool)
	for _, tag := range b {
		key := normalizeTag(tag)
		if _, ok := seen[key]; ok && !added[key] {
			shared = append(shared, seen[key])
			added[key] = true
		}
	}
	return shared
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func fallbackReasoning(f Factors) string {
	var parts []string
	if len(f.SharedCuisines) > 0 {
		parts = append(parts, fmt.Sprintf("You both enjoy %s", strings.Join(f.SharedCuisines, ", ")))
	}
	if len(f.SharedVibes) > 0 {
		parts = append(parts, fmt.Sprintf("you share a taste for %s settings", strings.Join(f.SharedVibes, ", ")))
	}
	if len(f.SharedTimes) > 0 {
		parts = append(parts, fmt.Sprintf("your schedules line up for %s", strings.Join(f.SharedTimes, ", ")))
	}

	if len(parts) == 0 {
		return "Your preferences differ, which could make for an adventurous outing."
	}
	return strings.Join(parts, "; ") + "."
}
