package index

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
)

func sampleCorpus(t *testing.T) *Corpus {
	t.Helper()
	c, err := Build([]RawDocument{
		{Name: "a.txt", Text: "the cat sat"},
		{Name: "b.txt", Text: "the dog ran"},
		{Name: "c.txt", Text: "Cat, cat and a bird."},
	})
	require.NoError(t, err)
	return c
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCorpus))
}

func TestBuildAssignsIDsInOrder(t *testing.T) {
	c := sampleCorpus(t)
	require.Equal(t, 3, c.Len())
	for i, d := range c.Documents {
		assert.Equal(t, i, d.ID)
	}
	d, ok := c.Lookup("b.txt")
	require.True(t, ok)
	assert.Equal(t, 1, d.ID)
	_, ok = c.Lookup("missing.txt")
	assert.False(t, ok)
}

func TestDocumentFrequencyCountsDistinctTermsOnce(t *testing.T) {
	c := sampleCorpus(t)
	v := c.Vocabulary
	assert.Equal(t, 2, v.DocFreq("cat"), "cat appears twice in c.txt but counts once")
	assert.Equal(t, 2, v.DocFreq("the"))
	assert.Equal(t, 1, v.DocFreq("dog"))
	assert.Equal(t, 0, v.DocFreq("fish"))
	assert.True(t, v.Contains("bird"))
	assert.False(t, v.Contains("fish"))

	for _, term := range v.ByLength() {
		assert.LessOrEqual(t, v.DocFreq(term), c.Len())
		assert.GreaterOrEqual(t, v.DocFreq(term), 1)
	}
}

func TestByLengthIsStable(t *testing.T) {
	c := sampleCorpus(t)
	// first-seen order: the cat sat dog ran and a bird
	assert.Equal(t, []string{"a", "the", "cat", "sat", "dog", "ran", "and", "bird"}, c.Vocabulary.ByLength())
	assert.Equal(t, 8, c.Vocabulary.Len())
}

func TestWeights(t *testing.T) {
	c := sampleCorpus(t)
	a, _ := c.Lookup("a.txt")
	w, ok := a.Weight("cat")
	require.True(t, ok)
	assert.InDelta(t, (1.0/3.0)*math.Log(3.0/2.0+1), w, 1e-12)

	_, ok = a.Weight("dog")
	assert.False(t, ok)

	for _, d := range c.Documents {
		for term := range d.Weights {
			assert.True(t, d.Contains(term), "weight key %q must be counted", term)
		}
		sum := 0
		for _, n := range d.Counts {
			sum += n
		}
		assert.Equal(t, d.Len(), sum)
	}
}

func TestCumulativeScore(t *testing.T) {
	c := sampleCorpus(t)
	d, _ := c.Lookup("c.txt")
	var want float64
	for term, n := range d.Counts {
		want += float64(n) * d.Weights[term]
	}
	assert.InDelta(t, want, d.CumulativeScore(), 1e-12)
	assert.Greater(t, d.CumulativeScore(), 0.0)
}

func TestEmptyDocumentHasNoWeights(t *testing.T) {
	c, err := Build([]RawDocument{{Name: "empty.txt", Text: "   "}, {Name: "x.txt", Text: "x"}})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Documents[0].Len())
	assert.Empty(t, c.Documents[0].Weights)
	assert.Equal(t, 0.0, c.Documents[0].CumulativeScore())
}

func TestBuildProgress(t *testing.T) {
	var calls [][2]int
	_, err := Build([]RawDocument{{Name: "1", Text: "a"}, {Name: "2", Text: "b"}, {Name: "3", Text: "c"}},
		WithProgress(2, func(done, total int) { calls = append(calls, [2]int{done, total}) }))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{2, 3}, {3, 3}}, calls)
}

func benchDocuments(n int) []RawDocument {
	words := []string{"gato", "perro", "casa", "río", "jardín", "mañana", "noche", "árbol", "canción", "ciudad"}
	raw := make([]RawDocument, n)
	for i := range raw {
		var sb strings.Builder
		for j := 0; j < 200; j++ {
			sb.WriteString(words[(i*7+j*3)%len(words)])
			sb.WriteByte(' ')
		}
		raw[i] = RawDocument{Name: fmt.Sprintf("doc-%d.txt", i), Text: sb.String()}
	}
	return raw
}

func BenchmarkBuild(b *testing.B) {
	for _, n := range []int{100, 1000} {
		raw := benchDocuments(n)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := Build(raw); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
