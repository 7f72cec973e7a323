package index

import (
	"sort"
	"unicode/utf8"
)

// Vocabulary is the set of distinct corpus terms with their document
// frequencies, plus the same terms ordered by ascending rune length.
type Vocabulary struct {
	docFreq  map[string]int
	byLength []string
}

func newVocabulary() *Vocabulary {
	return &Vocabulary{docFreq: make(map[string]int)}
}

// observe records one document containing term.
func (v *Vocabulary) observe(term string) {
	if _, seen := v.docFreq[term]; !seen {
		v.byLength = append(v.byLength, term)
	}
	v.docFreq[term]++
}

// seal orders byLength by rune length. The sort is stable, so terms of
// equal length keep first-seen order.
func (v *Vocabulary) seal() {
	sort.SliceStable(v.byLength, func(i, j int) bool {
		return utf8.RuneCountInString(v.byLength[i]) < utf8.RuneCountInString(v.byLength[j])
	})
}

func (v *Vocabulary) Contains(term string) bool {
	_, ok := v.docFreq[term]
	return ok
}

// DocFreq is the number of documents containing term.
func (v *Vocabulary) DocFreq(term string) int {
	return v.docFreq[term]
}

// ByLength returns the length-sorted term list. Callers must not modify it.
func (v *Vocabulary) ByLength() []string {
	return v.byLength
}

func (v *Vocabulary) Len() int {
	return len(v.byLength)
}
