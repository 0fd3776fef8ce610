package venues

import (
	"testing"
)

func ptr[T any](v T) *T { return &v }

func defaultDedupe() dedupeConfig {
	return dedupeConfig{similarity: 0.8, coordToleranceKm: 0.2}
}

func TestMergeExactNormalizedNames(t *testing.T) {
	raw := []RawVenue{
		{SourceID: "a-1", Source: "alpha", Name: "Luigi's Trattoria", Tags: []string{"italian", "romantic"}},
		{SourceID: "b-7", Source: "beta", Name: "luigis trattoria", Tags: []string{"italian", "cozy"}},
	}

	merged := mergeCandidates(raw, defaultDedupe())
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged candidate, got %d", len(merged))
	}

	c := merged[0]
	if len(c.SourceIDs) != 2 {
		t.Errorf("expected both source ids retained, got %v", c.SourceIDs)
	}

	want := map[string]bool{"italian": true, "romantic": true, "cozy": true}
	if len(c.Tags) != len(want) {
		t.Errorf("expected union of tags, got %v", c.Tags)
	}
	for _, tag := range c.Tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
	}
}

func TestMergeSimilarNamesRequiresCoordinates(t *testing.T) {
	// Similar names but no coordinates: cannot confirm, kept separate
	raw := []RawVenue{
		{SourceID: "a-1", Name: "The Golden Dragon Restaurant"},
		{SourceID: "b-1", Name: "Golden Dragon Restaurant"},
	}

	merged := mergeCandidates(raw, defaultDedupe())
	if len(merged) != 2 {
		t.Fatalf("expected 2 candidates without coordinate confirmation, got %d", len(merged))
	}

	// Same names with nearby coordinates: merged
	raw[0].Latitude, raw[0].Longitude = ptr(40.7128), ptr(-74.0060)
	raw[1].Latitude, raw[1].Longitude = ptr(40.7129), ptr(-74.0061)

	merged = mergeCandidates(raw, defaultDedupe())
	if len(merged) != 1 {
		t.Fatalf("expected similar nearby candidates to merge, got %d", len(merged))
	}
}

func TestMergeDistantSameSimilarNameStaysSeparate(t *testing.T) {
	raw := []RawVenue{
		{SourceID: "a-1", Name: "Corner Cafe Downtown", Latitude: ptr(40.7128), Longitude: ptr(-74.0060)},
		{SourceID: "b-1", Name: "Corner Cafes Downtown", Latitude: ptr(41.8781), Longitude: ptr(-87.6298)},
	}

	merged := mergeCandidates(raw, defaultDedupe())
	if len(merged) != 2 {
		t.Fatalf("similar names in different cities must not merge, got %d candidates", len(merged))
	}
}

func TestMergePrefersRicherRecord(t *testing.T) {
	raw := []RawVenue{
		{SourceID: "sparse-1", Name: "Blue Note Jazz Club"},
		{
			SourceID:   "rich-1",
			Name:       "Blue Note Jazz Club",
			Address:    "131 W 3rd St",
			Latitude:   ptr(40.7308),
			Longitude:  ptr(-74.0007),
			Rating:     ptr(4.6),
			PriceTier:  ptr("$$$"),
			OpenNow:    ptr(true),
			PhotoCount: 12,
		},
	}

	merged := mergeCandidates(raw, defaultDedupe())
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged candidate, got %d", len(merged))
	}

	c := merged[0]
	if c.Rating == nil || *c.Rating != 4.6 {
		t.Errorf("expected richer record's rating to survive, got %v", c.Rating)
	}
	if c.Address != "131 W 3rd St" {
		t.Errorf("expected richer record's address, got %q", c.Address)
	}
	// Primary id follows the surviving record
	if c.ID() != "rich-1" {
		t.Errorf("expected primary id rich-1, got %q", c.ID())
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Luigi's Trattoria", "luigis trattoria"},
		{"  THE   GOLDEN  DRAGON ", "the golden dragon"},
		{"Café-Bar №1", "cafébar 1"},
	}
	for _, tt := range tests {
		if got := normalizeName(tt.in); got != tt.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameSimilarityBounds(t *testing.T) {
	if s := nameSimilarity("golden dragon", "golden dragon"); s != 1.0 {
		t.Errorf("identical names must score 1.0, got %v", s)
	}
	if s := nameSimilarity("golden dragon", "pizza palace"); s > 0.3 {
		t.Errorf("unrelated names should score low, got %v", s)
	}
	if s := nameSimilarity("golden dragon restaurant", "golden dragon"); s < 0.5 {
		t.Errorf("prefix names should score high, got %v", s)
	}
}
