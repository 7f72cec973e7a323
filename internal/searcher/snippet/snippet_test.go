package snippet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectPicksBestFragment(t *testing.T) {
	text := "Nothing here. The cat sat on the mat. A cat and another cat"
	got := Select(text, []string{"cat"})
	assert.Equal(t, "A cat and another cat", got)
}

func TestSelectFirstFragmentIsDefault(t *testing.T) {
	assert.Equal(t, "Alpha beta", Select("Alpha beta. Gamma delta.", []string{"zeta"}))
	assert.Equal(t, "no terminator at all", Select("no terminator at all", []string{"x"}))
	assert.Equal(t, "", Select("", []string{"x"}))
}

func TestSelectTiesKeepEarlier(t *testing.T) {
	filler := strings.Repeat("x", 160)
	text := "cat one. " + filler + ". cat two."
	assert.Equal(t, "cat one", Select(text, []string{"cat"}))
}

func TestSelectStride(t *testing.T) {
	filler := strings.Repeat("word ", 40) // 200 bytes
	text := "intro. " + filler + ". cat cat cat. " + filler + " dog."
	got := Select(text, []string{"cat", "dog"})
	// after the filler the next terminator is looked for 150 bytes on, so
	// "cat cat cat." and the trailing filler form one fragment
	assert.True(t, strings.HasPrefix(got, "cat cat cat. word"), got)
	assert.True(t, strings.HasSuffix(got, "dog"), got)

	got = Select("a. b cat. c", []string{"cat"})
	assert.Equal(t, "b cat", got, "short texts are scanned sentence by sentence")
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		terms   []string
		want    string
	}{
		{"single", "The cat sat", []string{"cat"}, "The <mark>cat</mark> sat"},
		{"case and accents kept", "Él comió Café", []string{"cafe", "el"}, "<mark>Él</mark> comió <mark>Café</mark>"},
		{"punctuation kept", "cats, cat! (cat)", []string{"cat"}, "cats, <mark>cat</mark>! (<mark>cat</mark>)"},
		{"trailing text kept", "cat and more text", []string{"cat"}, "<mark>cat</mark> and more text"},
		{"last word", "a cat", []string{"cat"}, "a <mark>cat</mark>"},
		{"no match", "nothing to see", []string{"cat"}, "nothing to see"},
		{"no terms", "The cat", nil, "The cat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Highlight(tt.snippet, tt.terms, "<mark>", "</mark>"))
		})
	}
}

func TestHighlightCustomMarkers(t *testing.T) {
	assert.Equal(t, "a [[cat]]", Highlight("a cat", []string{"cat"}, "[[", "]]"))
}
