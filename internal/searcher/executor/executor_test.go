package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/synonym"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/metrics"
)

type staticCorpus struct {
	c *index.Corpus
}

func (s staticCorpus) Corpus() *index.Corpus {
	return s.c
}

func newExecutor(t testing.TB, syn *synonym.Table, opts []Option, docs ...index.RawDocument) *Executor {
	t.Helper()
	c, err := index.Build(docs)
	require.NoError(t, err)
	return New(staticCorpus{c}, syn, config.Default().Search, opts...)
}

var catDog = []index.RawDocument{
	{Name: "a.txt", Text: "the cat sat"},
	{Name: "b.txt", Text: "the dog ran"},
}

func links(items []SearchItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Link
	}
	return out
}

func TestExecuteSingleTerm(t *testing.T) {
	e := newExecutor(t, nil, nil, catDog...)
	res, err := e.Execute(context.Background(), "cat")
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Equal(t, "a.txt", item.Link)
	assert.Equal(t, "A", item.Title)
	assert.Equal(t, "the <mark>cat</mark> sat", item.Snippet)
	assert.Greater(t, item.Score, 0.0)
	assert.Equal(t, 1, res.TotalHits)
	assert.Empty(t, res.Suggestion)
}

func TestExecuteSuggestion(t *testing.T) {
	e := newExecutor(t, nil, nil,
		index.RawDocument{Name: "a.txt", Text: "cat"},
		index.RawDocument{Name: "b.txt", Text: "dog"},
	)
	res, err := e.Execute(context.Background(), "ct")
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.TotalHits)
	assert.Equal(t, "cat", res.Suggestion)
}

func TestExecuteExclusion(t *testing.T) {
	e := newExecutor(t, nil, nil, catDog...)
	res, err := e.Execute(context.Background(), "!dog cat")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, links(res.Items))
}

func TestExecuteOperatorsHold(t *testing.T) {
	docs := []index.RawDocument{
		{Name: "one.txt", Text: "red apple. green pear"},
		{Name: "two.txt", Text: "red pear and a red plum"},
		{Name: "three.txt", Text: "green apple. yellow plum"},
		{Name: "four.txt", Text: "apple apple pear"},
	}
	e := newExecutor(t, nil, nil, docs...)
	byName := make(map[string]string)
	for _, d := range docs {
		byName[d.Name] = d.Text
	}

	for _, x := range []string{"apple", "pear", "red", "green", "plum"} {
		for _, rest := range []string{"apple", "pear plum", "red green yellow"} {
			res, err := e.Execute(context.Background(), "!"+x+" "+rest)
			require.NoError(t, err)
			for _, it := range res.Items {
				assert.NotContains(t, byName[it.Link], x, "query !%s %s", x, rest)
			}

			res, err = e.Execute(context.Background(), "^"+x+" "+rest)
			require.NoError(t, err)
			for _, it := range res.Items {
				assert.Contains(t, byName[it.Link], x, "query ^%s %s", x, rest)
			}
		}
	}
}

func TestExecuteIsIdempotent(t *testing.T) {
	e := newExecutor(t, nil, nil, catDog...)
	for _, q := range []string{"the cat", "cat ~ sat", "**dog the", "ct dg", "[feline]"} {
		first, err := e.Execute(context.Background(), q)
		require.NoError(t, err)
		second, err := e.Execute(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, first, second, q)
	}
}

func TestExecuteSynonyms(t *testing.T) {
	syn, err := synonym.Build([]synonym.Record{{Key: "feline", Synonyms: []string{"cat"}}})
	require.NoError(t, err)
	e := newExecutor(t, syn, nil, catDog...)

	res, err := e.Execute(context.Background(), "[feline]")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, links(res.Items))
	assert.Equal(t, "the <mark>cat</mark> sat", res.Items[0].Snippet)
}

func TestExecuteNotLoaded(t *testing.T) {
	e := New(staticCorpus{}, nil, config.Default().Search)
	_, err := e.Execute(context.Background(), "cat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCorpus))
}

func TestExecuteCancelled(t *testing.T) {
	e := newExecutor(t, nil, nil, catDog...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Execute(ctx, "cat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestShardedMatchesSequential(t *testing.T) {
	words := []string{"cat", "dog", "bird", "fish", "the", "a", "ran", "sat", "big"}
	docs := make([]index.RawDocument, 1200)
	for i := range docs {
		text := ""
		for j := 0; j < 5+i%7; j++ {
			text += words[(i*7+j*3)%len(words)] + " "
		}
		docs[i] = index.RawDocument{Name: fmt.Sprintf("doc%04d.txt", i), Text: text}
	}
	seq := newExecutor(t, nil, nil, docs...)
	par := newExecutor(t, nil, []Option{WithShards(4)}, docs...)

	for _, q := range []string{"cat", "the dog", "!fish bird", "^big *cat", "cat ~ dog"} {
		want, err := seq.Execute(context.Background(), q)
		require.NoError(t, err)
		got, err := par.Execute(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, want, got, q)
	}
}

func TestDocument(t *testing.T) {
	e := newExecutor(t, nil, nil, index.RawDocument{Name: "black_cats.txt", Text: "meow"})
	doc, err := e.Document("black_cats.txt")
	require.NoError(t, err)
	assert.Equal(t, "BLACK CATS", doc.Title)
	assert.Equal(t, "meow", doc.Text)

	_, err = e.Document("missing.txt")
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.HTTPStatusCode(err))
}

func TestSuggest(t *testing.T) {
	c, err := index.Build([]index.RawDocument{{Name: "a.txt", Text: "cat dog"}})
	require.NoError(t, err)
	assert.Equal(t, "", Suggest(c, "cat"))
	assert.Equal(t, "cat dog", Suggest(c, "ct dog"))
	assert.Equal(t, "", Suggest(c, "elephants"), "no candidate in the length window")
}

func TestExecuteRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := newExecutor(t, nil, []Option{WithMetrics(m)}, catDog...)

	_, err := e.Execute(context.Background(), "cat")
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), "ct")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := make(map[string]float64)
	for _, f := range families {
		if f.GetName() != "moogle_search_queries_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			counts[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, counts["hit"])
	assert.Equal(t, 1.0, counts["zero_result"])
}

func BenchmarkExecute(b *testing.B) {
	words := []string{"cat", "dog", "bird", "fish", "the", "a", "ran", "sat", "big"}
	docs := make([]index.RawDocument, 2000)
	for i := range docs {
		text := ""
		for j := 0; j < 40; j++ {
			text += words[(i+j*5)%len(words)] + " "
			if j%10 == 9 {
				text += ". "
			}
		}
		docs[i] = index.RawDocument{Name: fmt.Sprintf("doc%04d.txt", i), Text: text}
	}
	e := newExecutor(b, nil, nil, docs...)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Execute(ctx, "the *cat !fish bird ~ dog"); err != nil {
			b.Fatal(err)
		}
	}
}
