// Package scoring holds the pure relevance scoring functions shared by
// the storage adapters: chunk embedding cosine similarity, trigram string
// similarity and the hybrid-fast lexical word-hit heuristic.
package scoring

import (
	"math"
	"strings"
)

// Cosine computes the cosine similarity between two vectors. Mismatched
// dimensions or a zero-magnitude vector score 0 rather than erroring: a
// zero vector is the pipeline's fallback for a failed embedding and must
// never match anything.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2))
}

// Trigram scores string similarity as the Jaccard ratio of the two
// strings' trigram sets, with pg_trgm's conventions: lowercase, two
// leading and one trailing space of padding per word.
func Trigram(a, b string) float64 {
	ta := trigramSet(a)
	tb := trigramSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for t := range ta {
		if tb[t] {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func trigramSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = true
		}
	}
	return set
}

// WordHits is the cheap lexical heuristic for hybrid-fast search: the
// fraction of query words that occur as case-insensitive substrings of
// text.
func WordHits(text, query string) float64 {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return 0
	}

	haystack := strings.ToLower(text)
	hits := 0
	for _, w := range words {
		if strings.Contains(haystack, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}
