// Package source supplies raw documents to the indexer. A Source is the
// only component that touches storage.
package source

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/postgres"
)

// Source lists every document with its text, or reads one by name.
type Source interface {
	List(ctx context.Context) ([]index.RawDocument, error)
	Read(ctx context.Context, name string) (string, error)
}

// FromConfig builds the source selected by cfg.Source. The postgres source
// needs db; other sources ignore it.
func FromConfig(cfg config.CorpusConfig, db *postgres.Client) (Source, error) {
	switch cfg.Source {
	case config.SourceDirectory:
		return NewDirectory(cfg.Dir, cfg.Pattern, cfg.Workers), nil
	case config.SourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres source requires a database connection")
		}
		return NewPostgres(db), nil
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Source)
	}
}
