package parser

import "github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"

// NearScore scans tokens once, remembering the last tracked term and its
// position. Whenever a different tracked term follows, 1/gap is computed;
// the smallest such value is returned, or -1 when no two distinct terms
// were ever adjacent in the scan.
func NearScore(tokens []string, terms []string) float64 {
	index := make(map[string]int, len(terms))
	for i, t := range terms {
		if _, ok := index[t]; !ok {
			index[t] = i
		}
	}

	best := -1.0
	last, lastPos := -1, -1
	for pos, tok := range tokens {
		i, ok := index[tok]
		if !ok {
			continue
		}
		if last >= 0 && i != last {
			v := 1 / float64(pos-lastPos)
			if best < 0 || v < best {
				best = v
			}
		}
		last, lastPos = i, pos
	}
	return best
}

// Proximity returns the per-document ~ bonus, indexed like docs. It is nil
// when the query has no active ~ operator. If any flanking term is outside
// the vocabulary every bonus is 0.
func Proximity(q *Query, lex Lexicon, docs []*index.Document) []float64 {
	if len(q.Near) < 2 {
		return nil
	}
	out := make([]float64, len(docs))
	for _, t := range q.Near {
		if !lex.Contains(t) {
			return out
		}
	}
	for i, d := range docs {
		if v := NearScore(d.Tokens, q.Near); v > 0 {
			out[i] = v
		}
	}
	return out
}
