package venues

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// QueryCache is a best-effort shortcut for repeat identical searches.
// Candidates are otherwise produced fresh per call and never persisted.
// A nil Redis client disables caching entirely.
type QueryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewQueryCache(client *redis.Client, ttl time.Duration) *QueryCache {
	return &QueryCache{client: client, ttl: ttl}
}

func queryKey(q Query) string {
	data, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return "venues:query:" + hex.EncodeToString(sum[:16])
}

// Get returns cached candidates for an identical query, or nil
func (c *QueryCache) Get(ctx context.Context, q Query) []CandidateVenue {
	if c == nil || c.client == nil {
		return nil
	}

	key := queryKey(q)
	if key == "" {
		return nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}

	var candidates []CandidateVenue
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil
	}
	return candidates
}

// Set stores the candidate set; errors are swallowed, the cache is advisory
func (c *QueryCache) Set(ctx context.Context, q Query, candidates []CandidateVenue) {
	if c == nil || c.client == nil {
		return
	}

	key := queryKey(q)
	if key == "" {
		return
	}

	data, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, data, c.ttl)
}
