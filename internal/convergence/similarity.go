package convergence

import "strings"

// fuzzyEqualThreshold is the bigram-similarity cutoff used by decision
// reuse to treat two strings as "the same idea, reworded".
const fuzzyEqualThreshold = 0.7

// jaccardSimilarity computes |A ∩ B| / |A ∪ B| over two string sets,
// compared case-insensitively. Both empty sets are defined as identical;
// one empty and one non-empty set has zero overlap.
func jaccardSimilarity(a, b []string) float64 {
	setA := toLowerSet(a)
	setB := toLowerSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for item := range setA {
		if setB[item] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}

// bigramSimilarity is a Dice-like coefficient over character bigrams,
// lowercased. Equal strings always return 1; a string shorter than two
// characters on either side returns 0 since it has no bigrams to compare.
func bigramSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1.0
	}
	if len(a) < 2 || len(b) < 2 {
		return 0.0
	}

	bigramsA := bigramCounts(a)
	bigramsB := bigramCounts(b)

	overlap := 0
	for bigram, countA := range bigramsA {
		countB := bigramsB[bigram]
		if countB < countA {
			overlap += countB
		} else {
			overlap += countA
		}
	}

	totalBigrams := (len(a) - 1) + (len(b) - 1)
	if totalBigrams == 0 {
		return 0.0
	}
	return float64(2*overlap) / float64(totalBigrams)
}

func bigramCounts(s string) map[string]int {
	runes := []rune(s)
	counts := make(map[string]int, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		counts[string(runes[i:i+2])]++
	}
	return counts
}

// fuzzyContains reports whether item has bigram similarity above the
// fuzzy-equal threshold with any element of pool.
func fuzzyContains(pool []string, item string) bool {
	for _, candidate := range pool {
		if bigramSimilarity(candidate, item) > fuzzyEqualThreshold {
			return true
		}
	}
	return false
}
