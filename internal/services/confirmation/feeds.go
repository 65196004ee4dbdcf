package confirmation

import (
	"context"
	"sync"

	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/Paystation/paystation-gravity-forms/internal/domain/ports"
)

// CachingFeedResolver memoizes feed lookups per form id, including negative
// results. Feeds are configuration, read many times within one request
// lifecycle (validation, initiation, both callbacks), so repeat calls must be
// cheap and idempotent.
type CachingFeedResolver struct {
	inner ports.FeedResolver
	mu    sync.RWMutex
	cache map[int64]*domain.Feed
	seen  map[int64]bool
}

// NewCachingFeedResolver wraps a resolver with per-form memoization.
func NewCachingFeedResolver(inner ports.FeedResolver) *CachingFeedResolver {
	return &CachingFeedResolver{
		inner: inner,
		cache: make(map[int64]*domain.Feed),
		seen:  make(map[int64]bool),
	}
}

// Resolve returns the memoized feed for a form, consulting the inner resolver
// once per form id. Lookup errors are not cached.
func (r *CachingFeedResolver) Resolve(ctx context.Context, formID int64) (*domain.Feed, error) {
	r.mu.RLock()
	if r.seen[formID] {
		feed := r.cache[formID]
		r.mu.RUnlock()
		return feed, nil
	}
	r.mu.RUnlock()

	feed, err := r.inner.Resolve(ctx, formID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[formID] = feed
	r.seen[formID] = true
	r.mu.Unlock()

	return feed, nil
}

// Invalidate drops a memoized entry, for when feed config is edited.
func (r *CachingFeedResolver) Invalidate(formID int64) {
	r.mu.Lock()
	delete(r.cache, formID)
	delete(r.seen, formID)
	r.mu.Unlock()
}
