package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tweetcounts-gateway/internal/metrics"
	"tweetcounts-gateway/pkg/logging/logging"
)

// LoggingStore wraps a Store with logging + metrics.
type LoggingStore struct {
	inner Store
}

// NewLoggingStore returns a store that logs and records metrics.
func NewLoggingStore(inner Store) Store {
	return &LoggingStore{inner: inner}
}

func (s *LoggingStore) Get(ctx context.Context, query string) (Entry, bool, error) {
	start := time.Now()
	e, ok, err := s.inner.Get(ctx, query)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := logging.L(ctx)

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
		metrics.CacheHitsTotal.Inc()
	}

	fields := []zap.Field{
		zap.String("query", query),
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	}

	if err != nil {
		logger.Error("entry_store_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("entry_store_get", fields...)
	}

	return e, ok, err
}

func (s *LoggingStore) Set(ctx context.Context, query string, e Entry) error {
	start := time.Now()
	err := s.inner.Set(ctx, query, e)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := logging.L(ctx)

	fields := []zap.Field{
		zap.String("query", query),
		zap.Bool("rate_locked", !e.RateLockedUntil.IsZero()),
		zap.Float64("latency_ms", latencyMs),
	}

	if err != nil {
		logger.Error("entry_store_set", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("entry_store_set", fields...)
	}

	return err
}
