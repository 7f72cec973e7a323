// Package synonym holds the read-only synonym table used to expand
// bracketed query spans.
package synonym

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
)

// Record is one configured entry. Value is accepted as an alias of
// Synonyms.
type Record struct {
	Key      string   `json:"key" yaml:"key"`
	Synonyms []string `json:"synonyms" yaml:"synonyms"`
	Value    []string `json:"value,omitempty" yaml:"value,omitempty"`
}

func (r Record) words() []string {
	if len(r.Synonyms) > 0 {
		return r.Synonyms
	}
	return r.Value
}

// Table maps a normalised key to its synonyms. The zero value and nil are
// empty tables.
type Table struct {
	entries map[string][]string
}

// Build validates records and indexes them by normalised key. The first
// record wins when keys repeat.
func Build(records []Record) (*Table, error) {
	var errs *multierror.Error
	t := &Table{entries: make(map[string][]string, len(records))}
	for i, r := range records {
		key := tokenizer.Normalize(strings.TrimSpace(r.Key))
		if key == "" {
			errs = multierror.Append(errs, fmt.Errorf("record %d: empty key", i))
			continue
		}
		if _, dup := t.entries[key]; dup {
			continue
		}
		t.entries[key] = r.words()
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, apperrors.Configf("invalid synonym table: %v", err)
	}
	return t, nil
}

// LoadFile reads records from a .json, .yaml or .yml file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Configf("reading synonyms %s: %v", path, err)
	}
	var records []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &records)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		return nil, apperrors.Configf("synonyms %s: unsupported file type", path)
	}
	if err != nil {
		return nil, apperrors.Configf("parsing synonyms %s: %v", path, err)
	}
	return Build(records)
}

// Len is the number of keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Lookup returns the synonyms configured for word, matched
// case-insensitively.
func (t *Table) Lookup(word string) []string {
	if t == nil {
		return nil
	}
	return t.entries[tokenizer.Normalize(word)]
}

var bracketed = regexp.MustCompile(`\[([^\[\]]*)\]`)

// Expand returns the tokens contributed by the synonyms of every word
// inside a well-formed [...] span of raw, in order of appearance.
// Unmatched brackets contribute nothing.
func (t *Table) Expand(raw string) []string {
	if t.Len() == 0 {
		return nil
	}
	var out []string
	for _, m := range bracketed.FindAllStringSubmatch(raw, -1) {
		for word := range tokenizer.Words(m[1]) {
			for _, syn := range t.Lookup(word) {
				out = append(out, tokenizer.Tokenize(syn)...)
			}
		}
	}
	return out
}
