// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of (query, abstract) scores kept.
const DefaultCacheSize = 1024

// Cached wraps an ExternalScorer with an LRU cache so identical
// (query, abstract) pairs are scored once per process. Failures are not
// cached.
type Cached struct {
	inner ExternalScorer
	cache *lru.Cache[string, float64]
}

// NewCached creates a cached scorer wrapping inner.
func NewCached(inner ExternalScorer, size int) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, float64](size)
	return &Cached{inner: inner, cache: cache}
}

// cacheKey hashes the pair so keys stay short for long abstracts.
func cacheKey(query, abstract string) string {
	sum := sha256.Sum256([]byte(query + "\x00" + abstract))
	return hex.EncodeToString(sum[:])
}

// Score returns the cached score if present, otherwise asks inner.
func (c *Cached) Score(ctx context.Context, query, abstract string) (float64, error) {
	key := cacheKey(query, abstract)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.inner.Score(ctx, query, abstract)
	if err != nil {
		return 0, err
	}
	c.cache.Add(key, v)
	return v, nil
}

// Len reports how many scores are cached.
func (c *Cached) Len() int { return c.cache.Len() }
