// Package index builds the immutable in-memory corpus: tokenised documents,
// per-document TF-IDF weights and the corpus vocabulary.
package index

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/scoring"
	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
)

// Corpus is one loaded snapshot. Nothing in it changes after Build; a
// reload produces a new Corpus.
type Corpus struct {
	Documents  []*Document
	Vocabulary *Vocabulary
	BuiltAt    time.Time

	byName map[string]*Document
}

// Len is the number of documents.
func (c *Corpus) Len() int {
	return len(c.Documents)
}

// Lookup finds a document by its source name.
func (c *Corpus) Lookup(name string) (*Document, bool) {
	d, ok := c.byName[name]
	return d, ok
}

type buildOptions struct {
	progress      func(done, total int)
	progressEvery int
}

// Option configures Build.
type Option func(*buildOptions)

// WithProgress calls fn after every `every` documents are tokenised and
// once more at the end.
func WithProgress(every int, fn func(done, total int)) Option {
	return func(o *buildOptions) {
		if every <= 0 {
			every = 1
		}
		o.progress = fn
		o.progressEvery = every
	}
}

// Build tokenises raw in order, assigning ids 0..n-1, and computes every
// document's term weights. It fails with ErrCorpus when raw is empty.
func Build(raw []RawDocument, opts ...Option) (*Corpus, error) {
	if len(raw) == 0 {
		return nil, apperrors.Corpusf("no documents found")
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	vocab := newVocabulary()
	docs := make([]*Document, len(raw))
	byName := make(map[string]*Document, len(raw))
	for i, r := range raw {
		tokens := tokenizer.Tokenize(r.Text)
		counts := make(map[string]int)
		for _, tok := range tokens {
			if counts[tok] == 0 {
				vocab.observe(tok)
			}
			counts[tok]++
		}
		doc := &Document{
			ID:     i,
			Name:   r.Name,
			Text:   r.Text,
			Tokens: tokens,
			Counts: counts,
		}
		docs[i] = doc
		if _, dup := byName[r.Name]; !dup {
			byName[r.Name] = doc
		}
		if o.progress != nil && ((i+1)%o.progressEvery == 0 || i+1 == len(raw)) {
			o.progress(i+1, len(raw))
		}
	}
	vocab.seal()

	total := len(docs)
	for _, doc := range docs {
		doc.Weights = make(map[string]float64, len(doc.Counts))
		for term, count := range doc.Counts {
			doc.Weights[term] = scoring.TFIDF(count, doc.Len(), total, vocab.DocFreq(term))
		}
	}

	return &Corpus{
		Documents:  docs,
		Vocabulary: vocab,
		BuiltAt:    time.Now(),
		byName:     byName,
	}, nil
}
