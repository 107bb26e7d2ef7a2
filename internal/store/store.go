package store

import (
	"context"
	"time"

	"tweetcounts-gateway/internal/counts"
)

// Entry is the cached state for one normalized query. Freshness and
// rate-lock decisions are made by the resolver, not the store; the store
// never expires entries on its own.
type Entry struct {
	// Timestamp is when Payload was last computed from a successful
	// upstream response. Zero for stub entries, so a stub never reads
	// as fresh once its rate lock expires.
	Timestamp time.Time `json:"timestamp"`

	Payload counts.Payload `json:"payload"`

	// RateLockedUntil suppresses upstream calls for this query while in
	// the future. Zero means unlocked.
	RateLockedUntil time.Time `json:"rate_locked_until,omitempty"`
}

// Store holds one Entry per normalized query.
// Implemented by the memory store (default) and the Redis store.
type Store interface {
	Get(ctx context.Context, query string) (Entry, bool, error)
	Set(ctx context.Context, query string, e Entry) error
}
