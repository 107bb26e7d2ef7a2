package upstream

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// parseRetryAfter extracts the retry delay from a Retry-After header.
// Returns 0 if the header is missing or invalid.
//
// Retry-After can be:
// - Number of seconds: "120"
// - HTTP date: "Wed, 21 Oct 2015 07:28:00 GMT"
func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	// Try parsing as seconds (integer)
	if seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return 0
	}

	// Try parsing as HTTP date
	if t, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

// parseRateLimitReset extracts the window-reset instant from the
// x-rate-limit-reset header (unix seconds). Zero time if absent/invalid.
func parseRateLimitReset(resp *http.Response) time.Time {
	if resp == nil {
		return time.Time{}
	}

	reset := resp.Header.Get("x-rate-limit-reset")
	if reset == "" {
		return time.Time{}
	}

	unix, err := strconv.ParseInt(strings.TrimSpace(reset), 10, 64)
	if err != nil || unix <= 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
