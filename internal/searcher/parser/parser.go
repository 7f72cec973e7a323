// Package parser compiles raw query text into a weighted term vector with
// operator intents, and computes the proximity bonus of the ~ operator.
//
// Query language:
//
//	cat        ordinary term
//	!cat       documents containing cat are excluded
//	^cat       documents lacking cat are excluded
//	**cat      weight multiplied by (number of stars + 1)
//	cat ~ dog  documents get a bonus when cat and dog occur close together
//	[cat]      synonyms of cat are added to the query
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/synonym"
)

// requiredOffset reproduces the score shift applied to a term that is both
// required and prioritized.
const requiredOffset = 100

const (
	excludeOp  = '!'
	requireOp  = '^'
	priorityOp = '*'
	nearOp     = "~"
)

// Kind is the operator variant of a term.
type Kind int

const (
	Normal Kind = iota
	Excluded
	Required
	Prioritized
)

func (k Kind) String() string {
	switch k {
	case Excluded:
		return "excluded"
	case Required:
		return "required"
	case Prioritized:
		return "prioritized"
	default:
		return "normal"
	}
}

// Term is one in-vocabulary query term.
type Term struct {
	Text string
	// Base is the TF-IDF weight of the term within the query.
	Base     float64
	Excluded bool
	Required bool
	// Multiplier is the accumulated priority factor, 0 when unprioritized.
	Multiplier int
}

// Kind reports the dominant operator: exclusion beats priority, priority
// beats requirement. A prioritized term may still be Required.
func (t Term) Kind() Kind {
	switch {
	case t.Excluded:
		return Excluded
	case t.Multiplier > 0:
		return Prioritized
	case t.Required:
		return Required
	default:
		return Normal
	}
}

// MustContain reports whether documents lacking the term are excluded.
// Exclusion overrides requirement.
func (t Term) MustContain() bool {
	return t.Required && !t.Excluded
}

// Effective is the query-side weight used in the cosine sums. It is
// meaningless for excluded terms.
func (t Term) Effective() float64 {
	if t.Multiplier == 0 {
		return t.Base
	}
	m := float64(t.Multiplier)
	if t.Required {
		return (t.Base+requiredOffset)*m - requiredOffset
	}
	return t.Base * m
}

// Lexicon is the corpus vocabulary as seen by the compiler.
type Lexicon interface {
	Contains(term string) bool
	DocFreq(term string) int
}

// Query is a compiled query.
type Query struct {
	Raw string
	// Tokens are all normalised query tokens, synonyms included, in order.
	Tokens []string
	// Terms are the in-vocabulary tokens, each once, in first-seen order.
	Terms []Term
	// Near lists the distinct terms flanking ~ operators. Nil unless at
	// least two were found.
	Near []string
}

// Matchable returns the texts of non-excluded terms, used to pick and mark
// snippets.
func (q *Query) Matchable() []string {
	out := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		if !t.Excluded {
			out = append(out, t.Text)
		}
	}
	return out
}

// Empty reports whether no query term is in the vocabulary.
func (q *Query) Empty() bool {
	return len(q.Terms) == 0
}

// Compile tokenises raw, appends synonym expansions of bracketed spans,
// weights each in-vocabulary term and applies operators. totalDocs is the
// corpus size. syn may be nil.
func Compile(raw string, lex Lexicon, totalDocs int, syn *synonym.Table) *Query {
	tokens := tokenizer.Tokenize(raw)
	tokens = append(tokens, syn.Expand(raw)...)

	q := &Query{Raw: raw, Tokens: tokens}
	counts := make(map[string]int)
	var order []string
	for _, tok := range tokens {
		if !lex.Contains(tok) {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	pos := make(map[string]int, len(order))
	q.Terms = make([]Term, len(order))
	for i, text := range order {
		n := counts[text]
		q.Terms[i] = Term{
			Text: text,
			Base: scoring.TFIDF(n, len(tokens), totalDocs, n+lex.DocFreq(text)),
		}
		pos[text] = i
	}

	fields := strings.Fields(raw)
	for _, field := range fields {
		i, ok := pos[leadTerm(field)]
		if !ok {
			continue
		}
		t := &q.Terms[i]
		if stars := leadingStars(field); stars > 0 {
			t.Multiplier += stars + 1
		}
		switch field[0] {
		case excludeOp:
			t.Excluded = true
		case requireOp:
			t.Required = true
		}
	}
	q.Near = nearTerms(fields)
	return q
}

// leadTerm is the first normalised token of a raw query field, or "".
func leadTerm(field string) string {
	for w := range tokenizer.Words(field) {
		return w
	}
	return ""
}

func leadingStars(field string) int {
	n := 0
	for n < len(field) && field[n] == priorityOp {
		n++
	}
	return n
}

// nearTerms collects the lead terms of the fields on either side of every
// bare ~.
func nearTerms(fields []string) []string {
	var terms []string
	seen := make(map[string]bool)
	add := func(i int) {
		if i < 0 || i >= len(fields) || fields[i] == nearOp {
			return
		}
		t := leadTerm(fields[i])
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		terms = append(terms, t)
	}
	for i, f := range fields {
		if f == nearOp {
			add(i - 1)
			add(i + 1)
		}
	}
	if len(terms) < 2 {
		return nil
	}
	return terms
}
