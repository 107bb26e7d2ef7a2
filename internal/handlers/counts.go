package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"tweetcounts-gateway/internal/resolver"
	"tweetcounts-gateway/pkg/logging/logging"
)

// CountsHandler holds dependencies for the /api/counts endpoint.
type CountsHandler struct {
	Resolver *resolver.Resolver

	// CDN directives, in seconds.
	MaxAge               int
	StaleWhileRevalidate int
}

func NewCountsHandler(r *resolver.Resolver, maxAge, staleWhileRevalidate int) *CountsHandler {
	if maxAge <= 0 {
		maxAge = 300
	}
	if staleWhileRevalidate <= 0 {
		staleWhileRevalidate = 600
	}
	return &CountsHandler{
		Resolver:             r,
		MaxAge:               maxAge,
		StaleWhileRevalidate: staleWhileRevalidate,
	}
}

// GetCounts handles GET /api/counts?q=<query>.
func (h *CountsHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	h.setCommonHeaders(w)

	rawQuery := r.URL.Query().Get("q")
	res := h.Resolver.Resolve(ctx, rawQuery, time.Now())

	if res.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfterSeconds))
	}

	logger.Info("counts_request",
		zap.String("raw_query", rawQuery),
		zap.Int("status", res.Status),
		zap.Int("retry_after_seconds", res.RetryAfterSeconds),
		zap.Bool("error", res.Error != nil),
		zap.Duration("total_latency_ms", time.Since(start)),
	)

	if res.Error != nil {
		h.writeJSON(w, res.Status, res.Error)
		return
	}
	h.writeJSON(w, res.Status, res.Payload)
}

// Preflight handles OPTIONS /api/counts for CORS.
func (h *CountsHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	h.setCommonHeaders(w)
	w.WriteHeader(http.StatusOK)
}

// setCommonHeaders applies the permissive CORS policy and the CDN
// cache-control directives every response carries.
func (h *CountsHandler) setCommonHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", h.MaxAge, h.StaleWhileRevalidate))
}

// writeJSON is a small helper to send JSON responses consistently.
func (h *CountsHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
