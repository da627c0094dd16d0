package ontology

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	rel  Relation
	term string
}

type cacheEntry struct {
	terms []string
	found bool
}

// CachedService memoizes another Service. Misses are cached too, since a term
// without a closure set stays without one for the life of the process.
// Concurrent lookups of the same uncached term share one backend call.
type CachedService struct {
	inner Service

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
	group   singleflight.Group
}

// NewCachedService wraps inner.
func NewCachedService(inner Service) *CachedService {
	return &CachedService{
		inner:   inner,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// Ancestors implements Service.
func (c *CachedService) Ancestors(ctx context.Context, term string) ([]string, bool) {
	return c.get(ctx, RelationAncestors, term)
}

// Descendants implements Service.
func (c *CachedService) Descendants(ctx context.Context, term string) ([]string, bool) {
	return c.get(ctx, RelationDescendants, term)
}

// Len returns the number of cached lookups, hits and misses alike.
func (c *CachedService) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *CachedService) get(ctx context.Context, rel Relation, term string) ([]string, bool) {
	key := cacheKey{rel: rel, term: term}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return slices.Clone(entry.terms), entry.found
	}

	v, _, _ := c.group.Do(string(rel)+"\x00"+term, func() (any, error) {
		terms, found := Lookup(ctx, c.inner, rel, term)
		e := cacheEntry{terms: terms, found: found}
		// A cancelled caller may have produced a spurious miss; do not pin it.
		if found || ctx.Err() == nil {
			c.mu.Lock()
			c.entries[key] = e
			c.mu.Unlock()
		}
		return e, nil
	})
	e := v.(cacheEntry)
	if !e.found && ctx.Err() == nil {
		// The shared call may have run under another caller's cancelled
		// context. Only a pinned miss is trusted.
		c.mu.RLock()
		pinned, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return slices.Clone(pinned.terms), pinned.found
		}
		terms, found := Lookup(ctx, c.inner, rel, term)
		if found || ctx.Err() == nil {
			c.mu.Lock()
			c.entries[key] = cacheEntry{terms: terms, found: found}
			c.mu.Unlock()
		}
		return slices.Clone(terms), found
	}
	return slices.Clone(e.terms), e.found
}
