// Package tokenizer normalises text for indexing and querying. Folding is
// rune-for-rune, so StripToAlnum output stays aligned with its input, which
// highlighting depends on.
package tokenizer

import (
	"iter"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DocumentSuffix is removed from document names by DisplayTitle.
const DocumentSuffix = ".txt"

var folds = map[rune]string{
	'a': "áàäâæāªãåą",
	'e': "ėêęēèéë",
	'i': "ìïíįîī",
	'o': "ºōœøõôöòó",
	'u': "ūùûüú",
	'c': "ćçč",
	'n': "ńñ",
	'$': "ß€$¢£₹₱¥",
	' ': "†‡★—_–·",
	'"': "„“”«»‚‘’‹›",
}

// delimiters split words. \r is included so CRLF files tokenise like LF
// files.
const delimiters = " @#$_&-+()/¿?¡!;:'*,.~`|•√π÷×¶∆}{=°^¢$€£%©®™℅[]><\"\\\n\t\r"

var (
	foldTable = buildFoldTable()
	delimSet  = buildDelimSet()
	upper     = cases.Upper(language.Und)
)

func buildFoldTable() map[rune]rune {
	t := make(map[rune]rune)
	for base, variants := range folds {
		for _, v := range variants {
			t[v] = base
		}
	}
	return t
}

func buildDelimSet() map[rune]struct{} {
	s := make(map[rune]struct{}, len(delimiters))
	for _, r := range delimiters {
		s[r] = struct{}{}
	}
	return s
}

func foldRune(r rune) rune {
	r = unicode.ToLower(r)
	if base, ok := foldTable[r]; ok {
		return base
	}
	return r
}

// Normalize lowercases text and folds accented and typographic variants to
// their plain base character.
func Normalize(text string) string {
	return strings.Map(foldRune, text)
}

// Words yields the normalised tokens of text in order. Empty tokens are
// skipped. The sequence can be ranged over any number of times.
func Words(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		norm := Normalize(text)
		start := -1
		for i, r := range norm {
			if _, ok := delimSet[r]; ok {
				if start >= 0 {
					if !yield(norm[start:i]) {
						return
					}
					start = -1
				}
				continue
			}
			if start < 0 {
				start = i
			}
		}
		if start >= 0 {
			yield(norm[start:])
		}
	}
}

// Tokenize returns all tokens of text.
func Tokenize(text string) []string {
	tokens := make([]string, 0, len(text)/6)
	for w := range Words(text) {
		tokens = append(tokens, w)
	}
	return tokens
}

// StripToAlnum normalises text and replaces every rune outside [A-Za-z0-9_]
// with a space. The result has exactly as many runes as text.
func StripToAlnum(text string) string {
	return strings.Map(func(r rune) rune {
		r = foldRune(r)
		if isWordRune(r) {
			return r
		}
		return ' '
	}, text)
}

func isWordRune(r rune) bool {
	return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// DisplayTitle turns a document name like "black_cats.txt" into
// "BLACK CATS".
func DisplayTitle(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.TrimSuffix(name, DocumentSuffix)
	return upper.String(name)
}
