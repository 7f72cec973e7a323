package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/ranker"
)

// minShardSize keeps small corpora on a single goroutine.
const minShardSize = 256

// rankSharded scores consecutive slices of docs concurrently and merges
// them in slice order before the stable sort, so the outcome is identical
// to ranker.Rank over the whole corpus.
func rankSharded(ctx context.Context, q *parser.Query, docs []*index.Document, increments []float64, shards int) ([]ranker.ScoredDoc, error) {
	size := (len(docs) + shards - 1) / shards
	if size < minShardSize {
		size = minShardSize
	}
	var parts [][]*index.Document
	for lo := 0; lo < len(docs); lo += size {
		parts = append(parts, docs[lo:min(lo+size, len(docs))])
	}

	results := make([][]ranker.ScoredDoc, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = ranker.Collect(q, part, increments)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]ranker.ScoredDoc, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	ranker.Sort(merged)
	return merged, nil
}
