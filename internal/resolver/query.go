package resolver

import (
	"regexp"
	"strings"
)

var (
	bareCashtagRe = regexp.MustCompile(`^\$([A-Za-z0-9_]+)$`)
	cashtagRe     = regexp.MustCompile(`\$([A-Za-z0-9_]+)`)
)

// Normalize trims the raw query, substitutes the default when absent, and
// rewrites bare cashtag queries. The cashtag operator is restricted to
// paid API tiers, so `$ZEN` becomes a disjunction of the hashtag, the bare
// term, and any configured aliases, excluding retweets.
func (r *Resolver) Normalize(raw string) string {
	q := strings.TrimSpace(raw)
	if q == "" {
		q = r.cfg.DefaultQuery
	}

	if m := bareCashtagRe.FindStringSubmatch(q); m != nil {
		q = r.rewriteCashtag(m[1])
	}

	return q
}

func (r *Resolver) rewriteCashtag(tag string) string {
	terms := []string{"#" + tag, tag}
	for _, alias := range r.cfg.Aliases[strings.ToUpper(tag)] {
		if alias != "" {
			terms = append(terms, alias)
		}
	}
	return "(" + strings.Join(terms, " OR ") + ") -is:retweet"
}

// containsCashtag reports whether the query uses the cashtag operator
// anywhere, e.g. inside a composed disjunction.
func containsCashtag(q string) bool {
	return cashtagRe.MatchString(q)
}

// substituteCashtags replaces every `$X` token with `#X`, the retry form
// used when the upstream rejects the cashtag operator.
func substituteCashtags(q string) string {
	return cashtagRe.ReplaceAllString(q, "#$1")
}
