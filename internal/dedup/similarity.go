package dedup

import "strings"

// Shingles builds the set of lowercase word bigrams of text. A single-word text yields
// that word as its only shingle.
func Shingles(text string) map[string]struct{} {
	tokens := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(tokens))
	if len(tokens) == 1 {
		set[tokens[0]] = struct{}{}
		return set
	}
	for i := 0; i+1 < len(tokens); i++ {
		set[tokens[i]+" "+tokens[i+1]] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	intersection := 0
	for shingle := range a {
		if _, ok := b[shingle]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Similarity compares two texts by their bigram shingles.
func Similarity(a, b string) float64 {
	return Jaccard(Shingles(a), Shingles(b))
}
