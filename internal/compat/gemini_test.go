package compat

import "testing"

func TestParseScoringResponse(t *testing.T) {
	raw := `{
		"overall_score": 0.78,
		"dimensions": {"cuisine": 0.9, "vibe": 0.7, "price": 0.8, "timing": 0.6, "activity": 0.75},
		"factors": {
			"shared_cuisines": ["Italian"], "shared_vibes": ["romantic"],
			"shared_price_tiers": ["$$"], "shared_times": ["dinner"], "shared_dietary": [],
			"reasoning": "Strong overlap on food and mood."
		}
	}`

	result, err := parseScoringResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OverallScore != 0.78 {
		t.Errorf("expected overall 0.78, got %v", result.OverallScore)
	}
	if result.Dimensions.Cuisine != 0.9 {
		t.Errorf("expected cuisine 0.9, got %v", result.Dimensions.Cuisine)
	}
	if len(result.Factors.SharedCuisines) != 1 || result.Factors.SharedCuisines[0] != "Italian" {
		t.Errorf("expected shared cuisines parsed, got %v", result.Factors.SharedCuisines)
	}
}

func TestParseScoringResponseStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"overall_score\": 0.5, \"dimensions\": {}, \"factors\": {\"reasoning\": \"meh\"}}\n```"

	result, err := parseScoringResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OverallScore != 0.5 {
		t.Errorf("expected 0.5, got %v", result.OverallScore)
	}
}

func TestParseScoringResponseClampsOutOfRangeScores(t *testing.T) {
	raw := `{"overall_score": 1.7, "dimensions": {"cuisine": -0.3}, "factors": {}}`

	result, err := parseScoringResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OverallScore != 1.0 {
		t.Errorf("expected overall clamped to 1.0, got %v", result.OverallScore)
	}
	if result.Dimensions.Cuisine != 0.0 {
		t.Errorf("expected cuisine clamped to 0.0, got %v", result.Dimensions.Cuisine)
	}
}

func TestParseScoringResponseRejectsGarbage(t *testing.T) {
	if _, err := parseScoringResponse("the vibes are immaculate"); err == nil {
		t.Fatal("expected an error for non-JSON output")
	}
}
