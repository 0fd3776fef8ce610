package venues

import (
	"context"
	"strings"
)

// Source is one external venue catalog, reachable by geographic query. Each
// may be slow, rate-limited, or down; the aggregator isolates failures.
// Provider HTTP clients live behind this boundary and are not part of this
// service.
type Source interface {
	Name() string
	Search(ctx context.Context, q Query) ([]RawVenue, error)
}

// StaticSource serves a fixed venue list, filtered by the query's category
// constraints. Used in development bootstrap and tests.
type StaticSource struct {
	name   string
	venues []RawVenue
}

func NewStaticSource(name string, venues []RawVenue) *StaticSource {
	return &StaticSource{name: name, venues: venues}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Search(ctx context.Context, q Query) ([]RawVenue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []RawVenue
	for _, v := range s.venues {
		if len(q.Categories) > 0 && !matchesCategory(v, q.Categories) {
			continue
		}
		out = append(out, v)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func matchesCategory(v RawVenue, categories []string) bool {
	for _, c := range categories {
		if strings.EqualFold(v.Category, c) {
			return true
		}
		for _, tag := range v.Tags {
			if strings.EqualFold(tag, c) {
				return true
			}
		}
	}
	return false
}
