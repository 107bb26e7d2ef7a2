package resolver

import (
	"testing"

	"tweetcounts-gateway/internal/store"
)

func newQueryResolver() *Resolver {
	return New(Config{
		DefaultQuery: "$ZEN",
		Aliases:      map[string][]string{"ZEN": {"horizen", "zencash"}},
	}, store.NewMemoryStore(), nil, nil)
}

func TestNormalize(t *testing.T) {
	r := newQueryResolver()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain query trimmed",
			in:   "  golang  ",
			want: "golang",
		},
		{
			name: "empty falls back to default and is rewritten",
			in:   "",
			want: "(#ZEN OR ZEN OR horizen OR zencash) -is:retweet",
		},
		{
			name: "bare cashtag rewritten",
			in:   "$ZEN",
			want: "(#ZEN OR ZEN OR horizen OR zencash) -is:retweet",
		},
		{
			name: "bare cashtag without aliases",
			in:   "$BTC",
			want: "(#BTC OR BTC) -is:retweet",
		},
		{
			name: "cashtag lookup is case-insensitive for aliases",
			in:   "$zen",
			want: "(#zen OR zen OR horizen OR zencash) -is:retweet",
		},
		{
			name: "composed query left untouched",
			in:   "$ZEN lang:en",
			want: "$ZEN lang:en",
		},
		{
			name: "hashtag query left untouched",
			in:   "#ZEN",
			want: "#ZEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSubstituteCashtags(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$ZEN", "#ZEN"},
		{"$ZEN OR $BTC", "#ZEN OR #BTC"},
		{"$ZEN lang:en", "#ZEN lang:en"},
		{"no operators here", "no operators here"},
	}

	for _, tt := range tests {
		if got := substituteCashtags(tt.in); got != tt.want {
			t.Fatalf("substituteCashtags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContainsCashtag(t *testing.T) {
	if !containsCashtag("$ZEN lang:en") {
		t.Fatalf("expected cashtag detected")
	}
	if containsCashtag("#ZEN lang:en") {
		t.Fatalf("hashtag misdetected as cashtag")
	}
}
