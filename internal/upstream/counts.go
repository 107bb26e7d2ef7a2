package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"tweetcounts-gateway/internal/metrics"
)

const countsPath = "/2/tweets/counts/recent"

// Counts performs one counts-by-time-window call. It does not retry; the
// resolver owns the fallback policy, including the single cashtag retry.
//
// Error surface:
//   - *RateLimitError on 429, carrying the upstream's retry hints
//   - *StatusError on other non-2xx responses
//   - plain wrapped errors for transport failures and an open breaker
func (c *client) Counts(parentCtx context.Context, req *CountsRequest) (*CountsResult, error) {
	start := time.Now()

	if req == nil {
		return nil, fmt.Errorf("countsclient: request is nil")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("countsclient: invalid request: %w", err)
	}

	c.logger.Debug("counts request starting",
		zap.String("query", req.Query),
		zap.Time("start_time", req.StartTime),
		zap.Time("end_time", req.EndTime),
	)

	// Per-request timeout (0 = only use parentCtx)
	var ctx context.Context
	var cancel context.CancelFunc
	if c.cfg.UpstreamTimeout > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, c.cfg.UpstreamTimeout)
	} else {
		ctx, cancel = context.WithCancel(parentCtx)
	}
	defer cancel()

	params := url.Values{}
	params.Set("query", req.Query)
	params.Set("granularity", GranularityHour)
	params.Set("start_time", req.StartTime.UTC().Format(time.RFC3339))
	params.Set("end_time", req.EndTime.UTC().Format(time.RFC3339))

	reqURL := c.cfg.BaseURL + countsPath + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("countsclient: build HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	httpReq.Header.Set("Accept", "application/json")

	// The breaker wraps only the transport. Any received response counts
	// as a success; repeated failures to reach the upstream open it, and
	// an open breaker surfaces like a transport failure to the resolver.
	v, err := c.breaker.Execute(func() (any, error) {
		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("transport_error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("counts request short-circuited",
				zap.Error(err),
			)
			return nil, fmt.Errorf("countsclient: upstream unavailable: %w", err)
		}
		c.logger.Error("counts request failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, fmt.Errorf("countsclient: do request: %w", err)
	}
	resp := v.(*http.Response)
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.UpstreamRequestsTotal.WithLabelValues("rate_limited").Inc()
		rle := &RateLimitError{
			RetryAfter: parseRetryAfter(resp),
			ResetAt:    parseRateLimitReset(resp),
		}
		c.logger.Warn("counts upstream rate limited",
			zap.Duration("retry_after", rle.RetryAfter),
			zap.Time("reset_at", rle.ResetAt),
		)
		return nil, rle
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamRequestsTotal.WithLabelValues("upstream_error").Inc()
		body, _ := io.ReadAll(resp.Body)

		detail := truncate(string(body), 200)
		var perr providerErrorResponse
		if err := json.Unmarshal(body, &perr); err == nil && perr.message() != "" {
			detail = perr.message()
		}

		c.logger.Error("counts upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Detail: detail}
	}

	var pResp providerCountsResponse
	if err := json.NewDecoder(resp.Body).Decode(&pResp); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("countsclient: decode upstream response: %w", err)
	}

	out := &CountsResult{
		Buckets:         make([]CountBucket, 0, len(pResp.Data)),
		TotalTweetCount: pResp.Meta.TotalTweetCount,
	}
	for _, b := range pResp.Data {
		out.Buckets = append(out.Buckets, CountBucket{
			Start:      b.Start,
			End:        b.End,
			TweetCount: b.TweetCount,
		})
	}

	metrics.UpstreamRequestsTotal.WithLabelValues("success").Inc()
	c.logger.Info("counts request completed",
		zap.String("query", req.Query),
		zap.Int("buckets", len(out.Buckets)),
		zap.Int64("total_tweet_count", out.TotalTweetCount),
		zap.Duration("duration", time.Since(start)),
	)

	return out, nil
}

// truncate limits string length for logging and error details.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
