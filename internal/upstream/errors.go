package upstream

import (
	"fmt"
	"time"
)

// RateLimitError signals an upstream 429. It carries the raw retry hints;
// the resolver derives the actual lock duration from them.
type RateLimitError struct {
	// RetryAfter from the Retry-After header. Zero when absent.
	RetryAfter time.Duration
	// ResetAt from the x-rate-limit-reset header. Zero when absent.
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	switch {
	case e.RetryAfter > 0:
		return fmt.Sprintf("upstream rate limited, retry after %s", e.RetryAfter)
	case !e.ResetAt.IsZero():
		return fmt.Sprintf("upstream rate limited, resets at %s", e.ResetAt.Format(time.RFC3339))
	default:
		return "upstream rate limited, no retry hint"
	}
}

// StatusError signals a non-2xx, non-429 upstream response.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %d: %s", e.StatusCode, e.Detail)
}

// IsBadRequest reports whether the upstream rejected the query itself.
func (e *StatusError) IsBadRequest() bool {
	return e.StatusCode == 400
}
