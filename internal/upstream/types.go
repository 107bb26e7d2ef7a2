package upstream

import (
	"context"
	"errors"
	"time"
)

// GranularityHour is the only bucket size the gateway requests.
const GranularityHour = "hour"

// CountsRequest describes one counts-by-time-window call.
type CountsRequest struct {
	Query     string
	StartTime time.Time
	EndTime   time.Time
}

func (r *CountsRequest) Validate() error {
	if r.Query == "" {
		return errors.New("query is required")
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return errors.New("start and end times are required")
	}
	if !r.EndTime.After(r.StartTime) {
		return errors.New("end time must be after start time")
	}
	return nil
}

// CountBucket is one hourly bucket as returned by the counts API.
type CountBucket struct {
	Start      string
	End        string
	TweetCount int64
}

// CountsResult is the decoded upstream response.
type CountsResult struct {
	Buckets         []CountBucket
	TotalTweetCount int64
}

// Client is the interface used by the resolver.
type Client interface {
	Counts(ctx context.Context, req *CountsRequest) (*CountsResult, error)
}
