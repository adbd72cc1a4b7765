package memory

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "to": {}, "in": {}, "on": {}, "for": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "and": {}, "or": {}, "with": {},
	"it": {}, "its": {}, "how": {}, "what": {}, "who": {}, "which": {}, "do": {},
	"does": {}, "did": {}, "by": {}, "at": {}, "as": {}, "be": {}, "from": {},
	"that": {}, "this": {}, "me": {}, "tell": {}, "about": {},
}

// tokenize returns the distinct lower-cased content words of s.
func tokenize(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// overlap is the share of query tokens found in doc.
func overlap(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	var n int
	for w := range query {
		if _, ok := doc[w]; ok {
			n++
		}
	}
	return float64(n) / float64(len(query))
}

// rank orders hits by descending score, then key, and truncates to limit.
func rank(hits []driven.BackendHit, limit int) []driven.BackendHit {
	slices.SortStableFunc(hits, func(a, b driven.BackendHit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
