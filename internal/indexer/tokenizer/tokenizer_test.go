package tokenizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Canción", "cancion"},
		{"ÁRBOL", "arbol"},
		{"Façade Naïve", "facade naive"},
		{"piñata", "pinata"},
		{"“quoted”", `"quoted"`},
		{"a—b", "a b"},
		{"€5", "$5"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "the cat sat", []string{"the", "cat", "sat"}},
		{"punctuation", "Hello, world! (again)", []string{"hello", "world", "again"}},
		{"operators", "!dog ^cat **fish ~ [bird]", []string{"dog", "cat", "fish", "bird"}},
		{"underscore splits", "snake_case", []string{"snake", "case"}},
		{"crlf", "one\r\ntwo\tthree", []string{"one", "two", "three"}},
		{"accented", "El niño comió", []string{"el", "nino", "comio"}},
		{"empty", "  ,,, ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestWordsIsRestartable(t *testing.T) {
	seq := Words("a b c")
	var first, second []string
	for w := range seq {
		first = append(first, w)
	}
	for w := range seq {
		second = append(second, w)
	}
	assert.Equal(t, first, second)

	var stopped []string
	for w := range seq {
		stopped = append(stopped, w)
		if w == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, stopped)
}

func TestStripToAlnumKeepsRuneAlignment(t *testing.T) {
	in := "¡Hola, señor! It's 5€."
	out := StripToAlnum(in)
	assert.Equal(t, utf8.RuneCountInString(in), utf8.RuneCountInString(out))
	assert.Equal(t, " hola  senor  it s 5  ", out)
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "BLACK CATS", DisplayTitle("black_cats.txt"))
	assert.Equal(t, "NOTES", DisplayTitle("notes"))
	assert.Equal(t, "ÁRBOL ROJO", DisplayTitle("árbol_rojo.txt"))
}

var benchTexts = map[string]string{
	"short":  "El rápido zorro marrón salta sobre el perro perezoso",
	"medium": strings.Repeat("La canción del árbol, “entre comillas”, y otra frase más. ", 10),
	"long":   strings.Repeat("Había una vez un gato que vivía en una casa junto al río; cada mañana salía al jardín. ", 200),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range benchTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := benchTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Tokenize(text)
		}
	})
}
