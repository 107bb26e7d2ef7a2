package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tweetcounts-gateway/internal/counts"
	"tweetcounts-gateway/internal/metrics"
	"tweetcounts-gateway/internal/store"
	"tweetcounts-gateway/internal/upstream"
	"tweetcounts-gateway/pkg/logging/logging"
)

const (
	rateLimitNote = "upstream rate limit reached; counts temporarily unavailable"
	outageNote    = "upstream unreachable; counts temporarily unavailable"
)

// Result is one resolution outcome. Exactly one of Payload and Error is
// set; RetryAfterSeconds is non-zero while the query is rate-locked.
type Result struct {
	Status            int
	RetryAfterSeconds int
	Payload           *counts.Payload
	Error             *counts.ErrorResponse
}

// Resolver answers count queries from the cache when it can and from the
// upstream when it must, degrading through the configured fallback chain
// when the upstream fails.
type Resolver struct {
	cfg    Config
	store  store.Store
	client upstream.Client
	sf     singleflight.Group
	logger *zap.Logger
}

func New(cfg Config, st store.Store, client upstream.Client, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		cfg:    cfg.WithDefaults(),
		store:  st,
		client: client,
		logger: logger.Named("resolver"),
	}
}

// Resolve returns the count payload for rawQuery as of now. Cache hits
// (fresh or rate-locked) are served without touching the upstream;
// concurrent misses for the same query are collapsed into one flight.
func (r *Resolver) Resolve(ctx context.Context, rawQuery string, now time.Time) Result {
	query := r.Normalize(rawQuery)

	entry, ok, err := r.store.Get(ctx, query)
	if err != nil {
		// Cache is best-effort; log and treat as miss.
		logging.L(ctx).Warn("entry_store_get_error", zap.Error(err))
		ok = false
	}

	if ok {
		locked := now.Before(entry.RateLockedUntil)
		fresh := now.Sub(entry.Timestamp) < r.cfg.FreshnessWindow

		if locked || fresh {
			res := Result{Status: http.StatusOK, Payload: &entry.Payload}
			if locked {
				res.RetryAfterSeconds = secondsUntil(entry.RateLockedUntil, now)
			}
			return res
		}
	}

	v, _, shared := r.sf.Do(query, func() (any, error) {
		return r.refresh(ctx, query, entry, ok, now), nil
	})
	if shared {
		logging.L(ctx).Debug("refresh deduplicated", zap.String("query", query))
	}
	return v.(Result)
}

// refresh performs the upstream call and every fallback branch for a
// query whose cache entry is missing, stale, or no longer locked.
func (r *Resolver) refresh(ctx context.Context, query string, prev store.Entry, hasPrev bool, now time.Time) Result {
	startT, endT := r.window(now)

	res, err := r.client.Counts(ctx, &upstream.CountsRequest{
		Query:     query,
		StartTime: startT,
		EndTime:   endT,
	})
	if err == nil {
		return r.cacheSuccess(ctx, query, query, res, startT, endT, now, "")
	}

	var rle *upstream.RateLimitError
	if errors.As(err, &rle) {
		return r.rateLimited(ctx, query, prev, hasPrev, now, rle, startT, endT)
	}

	var se *upstream.StatusError
	if errors.As(err, &se) {
		if se.IsBadRequest() && containsCashtag(query) {
			if out := r.retryWithHashtags(ctx, query, startT, endT, now); out != nil {
				return *out
			}
		}
		return r.degrade(ctx, query, prev, hasPrev, startT, endT, failure{
			transport: false,
			status:    se.StatusCode,
			detail:    se.Detail,
		})
	}

	// Transport failure, including an open circuit breaker.
	return r.degrade(ctx, query, prev, hasPrev, startT, endT, failure{
		transport: true,
		now:       now,
		detail:    err.Error(),
	})
}

// rateLimited applies the circuit-breaker branch for an upstream 429: the
// query gets a rate lock derived from the upstream's hints, and callers
// keep getting the best payload we have under that lock. A caller is
// never regressed from real data to a stub.
func (r *Resolver) rateLimited(
	ctx context.Context,
	query string,
	prev store.Entry,
	hasPrev bool,
	now time.Time,
	rle *upstream.RateLimitError,
	startT, endT time.Time,
) Result {
	lock := r.lockDuration(rle, now)
	until := now.Add(lock)
	retrySecs := secondsUntil(until, now)

	metrics.RateLocksTotal.Inc()
	logging.L(ctx).Warn("rate lock applied",
		zap.String("query", query),
		zap.Duration("lock", lock),
		zap.Bool("had_payload", hasPrev),
	)

	if hasPrev && r.cfg.hasFallback(FallbackStale) {
		entry := prev
		entry.RateLockedUntil = until
		if err := r.store.Set(ctx, query, entry); err != nil {
			logging.L(ctx).Warn("entry_store_set_error", zap.Error(err))
		}
		metrics.FallbackServesTotal.WithLabelValues("stale").Inc()
		return Result{Status: http.StatusOK, Payload: &entry.Payload, RetryAfterSeconds: retrySecs}
	}

	if r.cfg.hasFallback(FallbackStub) {
		stub := counts.Stub(query, formatTime(startT), formatTime(endT), rateLimitNote)
		// Zero Timestamp: a stub is never fresh, only the lock protects it.
		entry := store.Entry{Payload: stub, RateLockedUntil: until}
		if err := r.store.Set(ctx, query, entry); err != nil {
			logging.L(ctx).Warn("entry_store_set_error", zap.Error(err))
		}
		metrics.FallbackServesTotal.WithLabelValues("stub").Inc()
		return Result{Status: http.StatusOK, Payload: &stub, RetryAfterSeconds: retrySecs}
	}

	return Result{
		Status: http.StatusTooManyRequests,
		Error: &counts.ErrorResponse{
			Error:             "rate_limited",
			Detail:            rle.Error(),
			RetryAfterSeconds: retrySecs,
		},
		RetryAfterSeconds: retrySecs,
	}
}

// lockDuration derives a rate-lock span from the upstream's hints:
// explicit Retry-After wins, then the reset instant, then the freshness
// window. The result is floored at MinRateLock.
func (r *Resolver) lockDuration(rle *upstream.RateLimitError, now time.Time) time.Duration {
	d := r.cfg.FreshnessWindow
	switch {
	case rle.RetryAfter > 0:
		d = rle.RetryAfter
	case !rle.ResetAt.IsZero():
		d = rle.ResetAt.Sub(now)
	}
	if d < r.cfg.MinRateLock {
		d = r.cfg.MinRateLock
	}
	return d
}

// retryWithHashtags makes the single 400-fallback attempt with cashtags
// swapped for hashtags. Returns nil when the retry is not applicable or
// also failed, in which case the caller degrades normally.
func (r *Resolver) retryWithHashtags(ctx context.Context, query string, startT, endT, now time.Time) *Result {
	fallbackQuery := substituteCashtags(query)
	if fallbackQuery == query {
		return nil
	}

	logging.L(ctx).Info("retrying with hashtag substitution",
		zap.String("query", query),
		zap.String("fallback_query", fallbackQuery),
	)

	res, err := r.client.Counts(ctx, &upstream.CountsRequest{
		Query:     fallbackQuery,
		StartTime: startT,
		EndTime:   endT,
	})
	if err != nil {
		logging.L(ctx).Warn("hashtag substitution retry failed", zap.Error(err))
		return nil
	}

	note := fmt.Sprintf("cashtag operator rejected by upstream; hashtags substituted (counted %q)", fallbackQuery)
	out := r.cacheSuccess(ctx, query, fallbackQuery, res, startT, endT, now, note)
	return &out
}

// cacheSuccess maps an upstream result to a payload, sums the buckets,
// clears any rate lock, and caches under cacheKey.
func (r *Resolver) cacheSuccess(
	ctx context.Context,
	cacheKey, resolvedQuery string,
	res *upstream.CountsResult,
	startT, endT, now time.Time,
	note string,
) Result {
	var total int64
	buckets := make([]counts.Bucket, 0, len(res.Buckets))
	for _, b := range res.Buckets {
		buckets = append(buckets, counts.Bucket{
			Start: b.Start,
			End:   b.End,
			Count: b.TweetCount,
		})
		total += b.TweetCount
	}

	payload := counts.Payload{
		Query:     resolvedQuery,
		StartTime: formatTime(startT),
		EndTime:   formatTime(endT),
		Total:     &total,
		PerHour:   buckets,
		Note:      note,
	}

	// Zero RateLockedUntil clears any previous lock.
	entry := store.Entry{Timestamp: now, Payload: payload}
	if err := r.store.Set(ctx, cacheKey, entry); err != nil {
		logging.L(ctx).Warn("entry_store_set_error", zap.Error(err))
	}

	return Result{Status: http.StatusOK, Payload: &payload}
}

// window computes the queried span: 24 hours ending a safety buffer
// before now, since the upstream rejects windows ending too close to the
// present.
func (r *Resolver) window(now time.Time) (time.Time, time.Time) {
	end := now.Add(-r.cfg.SafetyBuffer).UTC().Truncate(time.Second)
	return end.Add(-r.cfg.Window), end
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func secondsUntil(until, now time.Time) int {
	return int(math.Ceil(until.Sub(now).Seconds()))
}
