// Package ranker scores documents against a compiled query with cosine
// similarity over TF-IDF weights, honouring the query's operators.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/parser"
)

// ScoredDoc pairs a document with its score for one query.
type ScoredDoc struct {
	Doc   *index.Document
	Score float64
}

// Score computes the score of doc for q. matched is false when the document
// must not appear in the results: an excluded term is present, a required
// term is missing, or no query term occurs in it at all.
func Score(q *parser.Query, doc *index.Document) (score float64, matched bool) {
	var dot, docNorm, queryNorm float64
	misses := 0
	for _, t := range q.Terms {
		dw, ok := doc.Weight(t.Text)
		if !ok {
			if t.MustContain() {
				return 0, false
			}
			misses++
			continue
		}
		if t.Excluded {
			return 0, false
		}
		qw := t.Effective()
		dot += dw * qw
		docNorm += dw * dw
		queryNorm += qw * qw
	}
	if misses == len(q.Terms) {
		return 0, false
	}
	return dot / (math.Sqrt(docNorm)*math.Sqrt(queryNorm) + 1), true
}

// Rank scores every document, adds increments[doc.ID] when increments is
// non-nil, drops non-matching documents and orders the rest by descending
// score. Equal scores keep corpus order.
func Rank(q *parser.Query, docs []*index.Document, increments []float64) []ScoredDoc {
	if q.Empty() {
		return nil
	}
	result := Collect(q, docs, increments)
	Sort(result)
	return result
}

// Collect is Rank without the ordering step. Concatenating the Collect
// output of consecutive slices of a corpus and sorting it yields the same
// result as ranking the whole corpus at once.
func Collect(q *parser.Query, docs []*index.Document, increments []float64) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(docs))
	for _, d := range docs {
		s, ok := Score(q, d)
		if !ok {
			continue
		}
		if increments != nil {
			s += increments[d.ID]
		}
		result = append(result, ScoredDoc{Doc: d, Score: s})
	}
	return result
}

// Sort orders by descending score, stable on ties.
func Sort(docs []ScoredDoc) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
}
