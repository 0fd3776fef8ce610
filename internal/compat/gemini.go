package compat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/pairplan/pairplan-backend/internal/session"
)

// GeminiScorer delegates compatibility scoring to the Gemini API. Its
// per-dimension and overall scores are trusted verbatim (clamped to range).
type GeminiScorer struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiScorer(ctx context.Context, apiKey, modelName string) (*GeminiScorer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"

	return &GeminiScorer{client: client, model: model}, nil
}

const scoringPrompt = `You are a compatibility analyst for a two-person outing planner.
Given two people's preference sets, score how compatible their tastes are.

Person A preferences:
%s

Person B preferences:
%s

Respond with ONLY a JSON object in exactly this shape, all scores between 0 and 1:
{
  "overall_score": 0.0,
  "dimensions": {"cuisine": 0.0, "vibe": 0.0, "price": 0.0, "timing": 0.0, "activity": 0.0},
  "factors": {
    "shared_cuisines": [], "shared_vibes": [], "shared_price_tiers": [],
    "shared_times": [], "shared_dietary": [],
    "reasoning": "one or two sentences about why these two match or not"
  }
}`

func (g *GeminiScorer) Score(ctx context.Context, a, b *session.PreferenceSet) (*Result, error) {
	prefsA, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}
	prefsB, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}

	prompt := fmt.Sprintf(scoringPrompt, prefsA, prefsB)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrScoringUnavailable)
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("%w: non-text response", ErrScoringUnavailable)
	}

	result, err := parseScoringResponse(string(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}
	return result, nil
}

func (g *GeminiScorer) Close() error {
	return g.client.Close()
}

// parseScoringResponse tolerates markdown fences some model versions wrap
// around JSON output
func parseScoringResponse(raw string) (*Result, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("invalid scoring response: %w", err)
	}

	result.OverallScore = clamp01(result.OverallScore)
	result.Dimensions.Cuisine = clamp01(result.Dimensions.Cuisine)
	result.Dimensions.Vibe = clamp01(result.Dimensions.Vibe)
	result.Dimensions.Price = clamp01(result.Dimensions.Price)
	result.Dimensions.Timing = clamp01(result.Dimensions.Timing)
	result.Dimensions.Activity = clamp01(result.Dimensions.Activity)

	return &result, nil
}
