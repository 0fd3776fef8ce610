package venues

import (
	"context"
	"log"
	"sync"
	"time"
)

// AggregatorConfig bundles the fan-out and dedupe knobs
type AggregatorConfig struct {
	SourceTimeout    time.Duration
	PerSourceLimit   int
	GlobalLimit      int
	MinCandidates    int
	NameSimilarity   float64
	CoordToleranceKm float64
}

// Aggregator queries all configured sources concurrently and merges their
// results into one candidate set. A single source failing or timing out
// contributes nothing but never fails the whole aggregation.
type Aggregator struct {
	sources []Source
	cfg     AggregatorConfig
	cache   *QueryCache
}

func NewAggregator(sources []Source, cfg AggregatorConfig, cache *QueryCache) *Aggregator {
	return &Aggregator{sources: sources, cfg: cfg, cache: cache}
}

type sourceResult struct {
	source string
	venues []RawVenue
	err    error
}

// Search fans out to every source, joins on all of them, then dedupes and
// caps the merged set. Too few survivors counts as failure for retry
// purposes even when no source errored.
func (a *Aggregator) Search(ctx context.Context, q Query) ([]CandidateVenue, error) {
	if cached := a.cache.Get(ctx, q); cached != nil {
		return cached, nil
	}

	q.Limit = a.cfg.PerSourceLimit

	results := make(chan sourceResult, len(a.sources))
	var wg sync.WaitGroup

	for _, src := range a.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()

			// Each source gets its own deadline; a slow source is treated
			// the same as a failed one
			srcCtx, cancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
			defer cancel()

			venues, err := src.Search(srcCtx, q)
			results <- sourceResult{source: src.Name(), venues: venues, err: err}
		}(src)
	}

	wg.Wait()
	close(results)

	var raw []RawVenue
	failed := 0
	for res := range results {
		if res.err != nil {
			// Recorded for diagnostics; the source simply contributes nothing
			failed++
			recordSourceFailure(res.source)
			log.Printf("venue source %q failed: %v", res.source, res.err)
			continue
		}
		raw = append(raw, res.venues...)
	}

	merged := mergeCandidates(raw, dedupeConfig{
		similarity:       a.cfg.NameSimilarity,
		coordToleranceKm: a.cfg.CoordToleranceKm,
	})

	if a.cfg.GlobalLimit > 0 && len(merged) > a.cfg.GlobalLimit {
		merged = merged[:a.cfg.GlobalLimit]
	}

	recordCandidates(len(merged))

	if len(merged) < a.cfg.MinCandidates {
		if failed > 0 {
			// Upstream outage: worth retrying
			return nil, ErrSearchFailed
		}
		// Sources answered; the area or the constraints are the problem
		return nil, ErrNoVenuesMatched
	}

	a.cache.Set(ctx, q, merged)
	return merged, nil
}
