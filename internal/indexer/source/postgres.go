package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/resilience"
)

// Postgres reads documents from a table:
//
//	CREATE TABLE documents (
//	    name TEXT PRIMARY KEY,
//	    body TEXT NOT NULL
//	);
type Postgres struct {
	db    postgres.Querier
	retry resilience.RetryConfig
}

func NewPostgres(db postgres.Querier) *Postgres {
	return &Postgres{db: db, retry: resilience.RetryConfig{MaxAttempts: 3}}
}

// List returns all rows ordered by name.
func (p *Postgres) List(ctx context.Context) ([]index.RawDocument, error) {
	docs, err := resilience.RetryValue(ctx, "list-documents", p.retry, func() ([]index.RawDocument, error) {
		return p.list(ctx)
	})
	if err != nil {
		return nil, apperrors.Corpusf("listing documents: %v", err)
	}
	if len(docs) == 0 {
		return nil, apperrors.Corpusf("documents table is empty")
	}
	return docs, nil
}

func (p *Postgres) list(ctx context.Context) ([]index.RawDocument, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name, body FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []index.RawDocument
	for rows.Next() {
		var d index.RawDocument
		if err := rows.Scan(&d.Name, &d.Text); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (p *Postgres) Read(ctx context.Context, name string) (string, error) {
	var body string
	err := p.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %s not found", name)
	}
	if err != nil {
		return "", fmt.Errorf("reading document %s: %w", name, err)
	}
	return body, nil
}
