package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap/zaptest"
)

func testRequest() *CountsRequest {
	end := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &CountsRequest{
		Query:     "(#ZEN OR ZEN) -is:retweet",
		StartTime: end.Add(-24 * time.Hour),
		EndTime:   end,
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
}

func TestCountsSuccess(t *testing.T) {
	t.Parallel()

	var gotAuth, gotGranularity, gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets/counts/recent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}

		gotAuth = r.Header.Get("Authorization")
		gotGranularity = r.URL.Query().Get("granularity")
		gotQuery = r.URL.Query().Get("query")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"data": [
				{"start":"2024-03-01T10:00:00Z","end":"2024-03-01T11:00:00Z","tweet_count":3},
				{"start":"2024-03-01T11:00:00Z","end":"2024-03-01T12:00:00Z","tweet_count":5}
			],
			"meta": {"total_tweet_count": 8}
		}`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, BearerToken: "token-123"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	res, err := c.Counts(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}

	if gotAuth != "Bearer token-123" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotGranularity != GranularityHour {
		t.Fatalf("unexpected granularity: %q", gotGranularity)
	}
	if gotQuery != "(#ZEN OR ZEN) -is:retweet" {
		t.Fatalf("unexpected query param: %q", gotQuery)
	}

	if len(res.Buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(res.Buckets))
	}
	if res.Buckets[0].TweetCount != 3 || res.Buckets[1].TweetCount != 5 {
		t.Fatalf("unexpected bucket counts: %+v", res.Buckets)
	}
	if res.TotalTweetCount != 8 {
		t.Fatalf("expected meta total 8, got %d", res.TotalTweetCount)
	}
}

func TestCountsRateLimitHints(t *testing.T) {
	t.Parallel()

	resetAt := time.Now().Add(10 * time.Minute).Unix()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(resetAt, 10))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, BearerToken: "token"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = c.Counts(context.Background(), testRequest())

	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rle.RetryAfter != 120*time.Second {
		t.Fatalf("expected retry-after 120s, got %s", rle.RetryAfter)
	}
	if rle.ResetAt.Unix() != resetAt {
		t.Fatalf("expected reset at %d, got %d", resetAt, rle.ResetAt.Unix())
	}
}

func TestCountsRateLimitWithoutHints(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := NewClient(Config{BaseURL: srv.URL, BearerToken: "token"}, zaptest.NewLogger(t))

	_, err := c.Counts(context.Background(), testRequest())

	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rle.RetryAfter != 0 || !rle.ResetAt.IsZero() {
		t.Fatalf("expected empty hints, got %+v", rle)
	}
}

func TestCountsBadRequestDetail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errors":[{"message":"Reference to invalid operator 'cashtag'"}],"title":"Invalid Request"}`)
	}))
	defer srv.Close()

	c, _ := NewClient(Config{BaseURL: srv.URL, BearerToken: "token"}, zaptest.NewLogger(t))

	_, err := c.Counts(context.Background(), testRequest())

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !se.IsBadRequest() {
		t.Fatalf("expected 400, got %d", se.StatusCode)
	}
	if se.Detail != "Reference to invalid operator 'cashtag'" {
		t.Fatalf("unexpected detail: %q", se.Detail)
	}
}

func TestCountsRequestValidation(t *testing.T) {
	t.Parallel()

	c, _ := NewClient(Config{BaseURL: "http://example.invalid", BearerToken: "token"}, zaptest.NewLogger(t))

	if _, err := c.Counts(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil request")
	}
	if _, err := c.Counts(context.Background(), &CountsRequest{}); err == nil {
		t.Fatalf("expected error for empty request")
	}

	end := time.Now()
	req := &CountsRequest{Query: "q", StartTime: end, EndTime: end.Add(-time.Hour)}
	if _, err := c.Counts(context.Background(), req); err == nil {
		t.Fatalf("expected error for inverted window")
	}
}

func TestBreakerOpensAfterConsecutiveTransportFailures(t *testing.T) {
	t.Parallel()

	// A server that is already closed: every dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c, err := NewClient(Config{
		BaseURL:     srv.URL,
		BearerToken: "token",
		Breaker: &gobreaker.Settings{
			Name: "test",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 2
			},
			Timeout: time.Hour,
		},
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Counts(context.Background(), testRequest()); err == nil {
			t.Fatalf("expected transport failure on call %d", i+1)
		}
	}

	_, err = c.Counts(context.Background(), testRequest())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
}
