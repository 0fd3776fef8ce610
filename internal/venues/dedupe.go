package venues

import (
	"math"
	"strings"
	"unicode"
)

// dedupeConfig controls when two candidates are treated as the same venue
type dedupeConfig struct {
	// Name-similarity threshold applied when normalized names differ
	similarity float64
	// Coordinate tolerance for the similarity path
	coordToleranceKm float64
}

// mergeCandidates folds raw records from all sources into a deduplicated
// candidate set. Two records are duplicates when their normalized names match
// exactly, or when name similarity exceeds the threshold and they sit within
// coordinate tolerance of each other.
func mergeCandidates(raw []RawVenue, cfg dedupeConfig) []CandidateVenue {
	var merged []CandidateVenue

	for _, rv := range raw {
		candidate := toCandidate(rv)
		idx := findDuplicate(merged, &candidate, cfg)
		if idx < 0 {
			merged = append(merged, candidate)
			continue
		}
		merged[idx] = mergePair(merged[idx], candidate)
	}

	return merged
}

func toCandidate(rv RawVenue) CandidateVenue {
	return CandidateVenue{
		SourceIDs:  []string{rv.SourceID},
		Name:       rv.Name,
		Address:    rv.Address,
		Latitude:   rv.Latitude,
		Longitude:  rv.Longitude,
		Rating:     rv.Rating,
		PriceTier:  rv.PriceTier,
		Category:   rv.Category,
		Tags:       rv.Tags,
		OpenNow:    rv.OpenNow,
		PhotoCount: rv.PhotoCount,
		Hours:      rv.Hours,
	}
}

func findDuplicate(merged []CandidateVenue, c *CandidateVenue, cfg dedupeConfig) int {
	name := normalizeName(c.Name)

	for i := range merged {
		other := normalizeName(merged[i].Name)
		if name == other {
			return i
		}
		if nameSimilarity(name, other) >= cfg.similarity && withinTolerance(&merged[i], c, cfg.coordToleranceKm) {
			return i
		}
	}
	return -1
}

// mergePair keeps the record with richer fields as the base and unions the
// tag sets and source ids
func mergePair(a, b CandidateVenue) CandidateVenue {
	base, other := a, b
	if richness(&b) > richness(&a) {
		base, other = b, a
	}

	base.SourceIDs = appendUnique(base.SourceIDs, other.SourceIDs)
	base.Tags = appendUnique(base.Tags, other.Tags)

	// Fill gaps from the weaker record
	if base.Latitude == nil {
		base.Latitude, base.Longitude = other.Latitude, other.Longitude
	}
	if base.Rating == nil {
		base.Rating = other.Rating
	}
	if base.PriceTier == nil {
		base.PriceTier = other.PriceTier
	}
	if base.OpenNow == nil {
		base.OpenNow = other.OpenNow
	}
	if base.Hours == nil {
		base.Hours = other.Hours
	}
	if base.PhotoCount < other.PhotoCount {
		base.PhotoCount = other.PhotoCount
	}

	return base
}

// richness counts populated optional fields; used to pick the surviving
// record in a merge
func richness(c *CandidateVenue) int {
	score := 0
	if c.Latitude != nil {
		score++
	}
	if c.Rating != nil {
		score++
	}
	if c.PriceTier != nil {
		score++
	}
	if c.OpenNow != nil {
		score++
	}
	if c.Hours != nil {
		score++
	}
	if c.PhotoCount > 0 {
		score++
	}
	if c.Address != "" {
		score++
	}
	return score
}

func appendUnique(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[strings.ToLower(s)] = true
	}
	for _, s := range extra {
		key := strings.ToLower(s)
		if !seen[key] {
			base = append(base, s)
			seen[key] = true
		}
	}
	return base
}

// normalizeName lowercases, strips punctuation, and collapses whitespace
func normalizeName(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// nameSimilarity is a trigram Jaccard coefficient over the normalized names
func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	matches := 0
	for t := range ta {
		if tb[t] {
			matches++
		}
	}
	union := len(ta) + len(tb) - matches
	return float64(matches) / float64(union)
}

func trigrams(s string) map[string]bool {
	grams := make(map[string]bool)
	padded := "  " + s + "  "
	for i := 0; i+3 <= len(padded); i++ {
		grams[padded[i:i+3]] = true
	}
	return grams
}

func withinTolerance(a, b *CandidateVenue, toleranceKm float64) bool {
	// Without coordinates on both sides the similarity path cannot confirm a
	// duplicate
	if a.Latitude == nil || a.Longitude == nil || b.Latitude == nil || b.Longitude == nil {
		return false
	}
	return haversineKm(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude) <= toleranceKm
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371 // km

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
