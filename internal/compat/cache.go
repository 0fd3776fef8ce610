package compat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache stores one compatibility result per unordered participant pair.
// A nil Redis client degrades to cache-off; nothing depends on hits.
// Entries are only ever replaced or explicitly invalidated, never appended.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// pairKey orders the ids so both orientations of the pair hit the same entry
func pairKey(userA, userB int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("compat:pair:%d:%d", userA, userB)
}

// Get returns the cached result for the pair, or nil on miss
func (c *Cache) Get(ctx context.Context, userA, userB int64) (*Result, error) {
	if c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, pairKey(userA, userB)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Set replaces the pair's cached result
func (c *Cache) Set(ctx context.Context, userA, userB int64, result *Result) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pairKey(userA, userB), data, c.ttl).Err()
}

// Invalidate drops the pair's cached result. Called when either side's
// preferences change materially; entries never expire silently mid-analysis.
func (c *Cache) Invalidate(ctx context.Context, userA, userB int64) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, pairKey(userA, userB)).Err()
}
