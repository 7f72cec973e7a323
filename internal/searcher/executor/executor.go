// Package executor runs the per-query pipeline against the active corpus
// snapshot: compile, rank, pick snippets and compute a spelling suggestion.
package executor

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/synonym"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/tracing"
)

// snippetCheckEvery is how many snippets are built between context checks.
const snippetCheckEvery = 64

// SearchItem is one ranked result.
type SearchItem struct {
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
	Link    string  `json:"link"`
}

type SearchResult struct {
	Query      string       `json:"query"`
	Items      []SearchItem `json:"items"`
	Suggestion string       `json:"suggestion"`
	TotalHits  int          `json:"total_hits"`
}

// DocumentView is the full text of a single document.
type DocumentView struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// CorpusProvider hands out the active corpus snapshot.
type CorpusProvider interface {
	Corpus() *index.Corpus
}

type Executor struct {
	corpus   CorpusProvider
	synonyms *synonym.Table
	cfg      config.SearchConfig
	metrics  *metrics.Metrics
	shards   int
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics records query outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithShards scores the corpus in n concurrent slices. n <= 1 scores it
// on the calling goroutine.
func WithShards(n int) Option {
	return func(e *Executor) { e.shards = n }
}

// New builds an executor. syn may be nil.
func New(corpus CorpusProvider, syn *synonym.Table, cfg config.SearchConfig, opts ...Option) *Executor {
	e := &Executor{
		corpus:   corpus,
		synonyms: syn,
		cfg:      cfg,
		shards:   1,
		logger:   slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs raw against the active snapshot. The whole pipeline is
// bounded by the configured query timeout. A query without any
// in-vocabulary term returns no items but may still carry a suggestion.
func (e *Executor) Execute(ctx context.Context, raw string) (*SearchResult, error) {
	c := e.corpus.Corpus()
	if c == nil {
		return nil, apperrors.Corpusf("corpus not loaded")
	}

	start := time.Now()
	ctx, span := tracing.Start(ctx, "search")
	defer func() {
		span.End()
		span.Log(logger.FromContext(ctx))
	}()

	result, err := resilience.Within(ctx, e.cfg.QueryTimeout, "search", func(ctx context.Context) (*SearchResult, error) {
		return e.run(ctx, c, raw)
	})
	if err != nil {
		e.observe("error", 0, false)
		return nil, err
	}

	outcome := "hit"
	if result.TotalHits == 0 {
		outcome = "zero_result"
	}
	e.observe(outcome, result.TotalHits, result.Suggestion != "")
	logger.FromContext(ctx).Info("query executed",
		"query", raw,
		"hits", result.TotalHits,
		"suggestion", result.Suggestion,
		"elapsed", time.Since(start),
	)
	return result, nil
}

func (e *Executor) run(ctx context.Context, c *index.Corpus, raw string) (*SearchResult, error) {
	_, span := tracing.Start(ctx, "compile")
	q := parser.Compile(raw, c.Vocabulary, c.Len(), e.synonyms)
	span.Set("terms", len(q.Terms))
	span.End()

	_, span = tracing.Start(ctx, "rank")
	ranked, err := e.rank(ctx, q, c)
	span.Set("hits", len(ranked))
	span.End()
	if err != nil {
		return nil, err
	}

	_, span = tracing.Start(ctx, "snippets")
	items, err := e.items(ctx, q, ranked)
	span.End()
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Query:      raw,
		Items:      items,
		Suggestion: Suggest(c, raw),
		TotalHits:  len(items),
	}, nil
}

func (e *Executor) rank(ctx context.Context, q *parser.Query, c *index.Corpus) ([]ranker.ScoredDoc, error) {
	if q.Empty() {
		return nil, nil
	}
	increments := parser.Proximity(q, c.Vocabulary, c.Documents)
	if e.shards > 1 {
		return rankSharded(ctx, q, c.Documents, increments, e.shards)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ranker.Rank(q, c.Documents, increments), nil
}

func (e *Executor) items(ctx context.Context, q *parser.Query, ranked []ranker.ScoredDoc) ([]SearchItem, error) {
	terms := q.Matchable()
	items := make([]SearchItem, len(ranked))
	for i, r := range ranked {
		if i%snippetCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := snippet.Select(r.Doc.Text, terms)
		items[i] = SearchItem{
			Title:   tokenizer.DisplayTitle(r.Doc.Name),
			Snippet: snippet.Highlight(text, terms, e.cfg.HighlightOpen, e.cfg.HighlightClose),
			Score:   r.Score,
			Link:    r.Doc.Name,
		}
	}
	return items, nil
}

// Document returns the full text of the named document.
func (e *Executor) Document(name string) (*DocumentView, error) {
	c := e.corpus.Corpus()
	if c == nil {
		return nil, apperrors.Corpusf("corpus not loaded")
	}
	d, ok := c.Lookup(name)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "no document named %q", name)
	}
	return &DocumentView{Name: d.Name, Title: tokenizer.DisplayTitle(d.Name), Text: d.Text}, nil
}

// Suggest replaces every out-of-vocabulary token of raw with its closest
// vocabulary term. It returns "" unless some token was replaced.
func Suggest(c *index.Corpus, raw string) string {
	tokens := tokenizer.Tokenize(raw)
	changed := false
	for i, tok := range tokens {
		if c.Vocabulary.Contains(tok) {
			continue
		}
		if s := scoring.Suggest(c.Vocabulary.ByLength(), tok); s != tok {
			tokens[i] = s
			changed = true
		}
	}
	if !changed {
		return ""
	}
	return strings.Join(tokens, " ")
}

func (e *Executor) observe(outcome string, hits int, suggested bool) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	if outcome == "error" {
		return
	}
	e.metrics.SearchResultsCount.Observe(float64(hits))
	if suggested {
		e.metrics.SuggestionsTotal.Inc()
	}
}
