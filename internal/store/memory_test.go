package store

import (
	"context"
	"testing"
	"time"

	"tweetcounts-gateway/internal/counts"
)

func TestMemoryStoreRoundtrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	total := int64(8)
	entry := Entry{
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload: counts.Payload{
			Query: "golang",
			Total: &total,
		},
	}

	if err := s.Set(ctx, "golang", entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := s.Get(ctx, "golang")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected hit after Set")
	}
	if got.Payload.Query != "golang" || *got.Payload.Total != 8 {
		t.Fatalf("unexpected entry: %+v", got)
	}

	if _, ok, _ := s.Get(ctx, "other"); ok {
		t.Fatalf("expected miss for unknown query")
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Set(ctx, "q", Entry{Payload: counts.Payload{Note: "first"}})
	_ = s.Set(ctx, "q", Entry{Payload: counts.Payload{Note: "second"}})

	got, _, _ := s.Get(ctx, "q")
	if got.Payload.Note != "second" {
		t.Fatalf("expected last write to win, got %q", got.Payload.Note)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one entry per query, got %d", s.Len())
	}
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Set(ctx, "a", Entry{})
	_ = s.Set(ctx, "b", Entry{})
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("expected empty store after Clear, got %d", s.Len())
	}
}

func TestBuildKey(t *testing.T) {
	a := BuildKey("tweetcounts", "golang")
	b := BuildKey("tweetcounts", "golang")
	if a != b {
		t.Fatalf("key not deterministic: %q vs %q", a, b)
	}
	if a == BuildKey("tweetcounts", "rust") {
		t.Fatalf("distinct queries must map to distinct keys")
	}
	if a == BuildKey("other", "golang") {
		t.Fatalf("prefix must scope keys")
	}
	if BuildKey("", "golang") == a {
		t.Fatalf("empty prefix must differ from non-empty prefix")
	}
}
