// Package snippet picks the most relevant sentence of a document and marks
// query terms inside it.
package snippet

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/tokenizer"
)

// minStride is the minimum distance, in bytes, between the starts of two
// inspected fragments.
const minStride = 150

// Select returns the '.'-terminated fragment of text containing the most
// tokens equal to one of terms. The first fragment is the default and a
// later one replaces it only with a strictly higher count. After the first
// fragment the scan skips at least minStride bytes before looking for the
// next terminator, so long documents are sampled rather than read whole.
func Select(text string, terms []string) string {
	want := termSet(terms)
	text += "."

	best, bestCount := "", -1
	start := 0
	p := strings.IndexByte(text, '.')
	for p != -1 {
		fragment := text[start:p]
		count := 0
		for w := range tokenizer.Words(fragment) {
			if _, ok := want[w]; ok {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = fragment, count
		}

		start = p + 1
		from := start
		if start+minStride < len(text) {
			from = start + minStride
		}
		p = indexFrom(text, from)
	}
	return strings.TrimSpace(best)
}

func indexFrom(s string, from int) int {
	if from >= len(s) {
		return -1
	}
	i := strings.IndexByte(s[from:], '.')
	if i < 0 {
		return -1
	}
	return from + i
}

// Highlight wraps every word of snippet equal to one of terms in open and
// close. Words are compared in normalised form; the emitted text keeps the
// original characters, and everything else is copied verbatim.
func Highlight(snippet string, terms []string, open, close string) string {
	want := termSet(terms)
	if len(want) == 0 {
		return snippet
	}
	orig := []rune(snippet)
	stripped := []rune(tokenizer.StripToAlnum(snippet))

	var b strings.Builder
	b.Grow(len(snippet) + 16)
	pos, wordStart := 0, -1
	flush := func(end int) {
		if wordStart < 0 {
			return
		}
		if _, ok := want[string(stripped[wordStart:end])]; ok {
			b.WriteString(string(orig[pos:wordStart]))
			b.WriteString(open)
			b.WriteString(string(orig[wordStart:end]))
			b.WriteString(close)
			pos = end
		}
		wordStart = -1
	}
	for i, r := range stripped {
		if r == ' ' {
			flush(i)
			continue
		}
		if wordStart < 0 {
			wordStart = i
		}
	}
	flush(len(stripped))
	b.WriteString(string(orig[pos:]))
	return b.String()
}

func termSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}
