package resolver

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tweetcounts-gateway/internal/counts"
	"tweetcounts-gateway/internal/metrics"
	"tweetcounts-gateway/internal/store"
	"tweetcounts-gateway/pkg/logging/logging"
)

// failure describes an upstream outcome that produced no usable result.
type failure struct {
	transport bool // true for network/timeout/open-breaker, false for HTTP errors
	status    int  // upstream HTTP status when transport is false
	detail    string
	now       time.Time
}

// degrade walks the configured fallback chain in order. Each policy may
// decline; the first one that produces a result wins. When none applies,
// the failure is surfaced to the caller.
func (r *Resolver) degrade(
	ctx context.Context,
	query string,
	prev store.Entry,
	hasPrev bool,
	startT, endT time.Time,
	f failure,
) Result {
	for _, name := range r.cfg.Fallbacks {
		switch name {
		case FallbackStale:
			if res, ok := r.staleFallback(ctx, query, prev, hasPrev, f); ok {
				return res
			}
		case FallbackStub:
			if res, ok := r.stubFallback(ctx, query, startT, endT, f); ok {
				return res
			}
		}
	}
	return r.surface(ctx, query, f)
}

// staleFallback re-serves the previous payload as-is. A slightly outdated
// count beats an error on a public display.
func (r *Resolver) staleFallback(ctx context.Context, query string, prev store.Entry, hasPrev bool, f failure) (Result, bool) {
	if !hasPrev {
		return Result{}, false
	}

	metrics.FallbackServesTotal.WithLabelValues("stale").Inc()
	logging.L(ctx).Warn("serving stale payload",
		zap.String("query", query),
		zap.Bool("transport_failure", f.transport),
		zap.Int("upstream_status", f.status),
	)

	return Result{Status: http.StatusOK, Payload: &prev.Payload}, true
}

// stubFallback caches and serves a placeholder under a minimum-duration
// lock so near-simultaneous callers don't re-trigger the upstream call.
// Only applies to transport failures; an upstream HTTP error with no
// prior payload is surfaced instead.
func (r *Resolver) stubFallback(ctx context.Context, query string, startT, endT time.Time, f failure) (Result, bool) {
	if !f.transport {
		return Result{}, false
	}

	stub := counts.Stub(query, formatTime(startT), formatTime(endT), outageNote)
	entry := store.Entry{Payload: stub, RateLockedUntil: f.now.Add(r.cfg.MinRateLock)}
	if err := r.store.Set(ctx, query, entry); err != nil {
		logging.L(ctx).Warn("entry_store_set_error", zap.Error(err))
	}

	metrics.FallbackServesTotal.WithLabelValues("stub").Inc()
	logging.L(ctx).Warn("serving stub payload",
		zap.String("query", query),
		zap.String("detail", f.detail),
	)

	return Result{Status: http.StatusOK, Payload: &stub}, true
}

// surface reports the failure to the caller; reached only when every
// configured fallback declined.
func (r *Resolver) surface(ctx context.Context, query string, f failure) Result {
	logging.L(ctx).Error("no fallback available",
		zap.String("query", query),
		zap.Bool("transport_failure", f.transport),
		zap.Int("upstream_status", f.status),
		zap.String("detail", f.detail),
	)

	if f.transport {
		return Result{
			Status: http.StatusInternalServerError,
			Error: &counts.ErrorResponse{
				Error:  "internal_error",
				Status: http.StatusInternalServerError,
				Detail: "upstream unreachable",
			},
		}
	}

	return Result{
		Status: f.status,
		Error: &counts.ErrorResponse{
			Error:  "upstream_error",
			Status: f.status,
			Detail: f.detail,
		},
	}
}
