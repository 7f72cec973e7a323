// Package scoring holds the pure ranking primitives: TF-IDF weights,
// Levenshtein distance and fuzzy vocabulary lookup.
package scoring

import (
	"math"
	"sort"
	"unicode/utf8"
)

// TFIDF returns (count/docLen) * ln(totalDocs/docFreq + 1). An empty
// document or a zero document frequency yields 0.
func TFIDF(count, docLen, totalDocs, docFreq int) float64 {
	if docLen == 0 || docFreq == 0 {
		return 0
	}
	tf := float64(count) / float64(docLen)
	idf := math.Log(float64(totalDocs)/float64(docFreq) + 1)
	return tf * idf
}

// EditDistance is the unit-cost Levenshtein distance between a and b,
// measured in runes. It keeps two rows, so memory is O(len(b)).
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Suggest returns the closest term to word among the entries of byLength
// whose length is in [len(word)-1, len(word)+2). byLength must be sorted by
// ascending rune length. Ties keep the earlier entry; when nothing beats
// len(word)+5, word itself is returned.
func Suggest(byLength []string, word string) string {
	n := utf8.RuneCountInString(word)
	lo := lowerBound(byLength, n-1)
	hi := lowerBound(byLength, n+2)

	best := word
	bestDist := n + 5
	for _, candidate := range byLength[lo:hi] {
		if d := EditDistance(word, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

// lowerBound returns the first index whose entry is at least length runes
// long.
func lowerBound(byLength []string, length int) int {
	return sort.Search(len(byLength), func(i int) bool {
		return utf8.RuneCountInString(byLength[i]) >= length
	})
}
