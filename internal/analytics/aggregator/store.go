// Package aggregator persists snapshots of the search analytics totals in
// PostgreSQL so the analytics service can resume after a restart.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/postgres"
)

// DefaultRetain is the number of snapshots kept by Run, one day at the
// default one-minute interval.
const DefaultRetain = 1440

var schema = []string{
	`CREATE TABLE IF NOT EXISTS search_stats_snapshots (
    id               BIGSERIAL PRIMARY KEY,
    captured_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    total_searches   BIGINT NOT NULL,
    zero_results     BIGINT NOT NULL,
    reloads          BIGINT NOT NULL,
    corpus_documents INTEGER NOT NULL,
    stats            JSONB NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS search_stats_snapshots_captured_at_idx
    ON search_stats_snapshots (captured_at DESC)`,
}

// Store reads and writes snapshots. The headline counters are kept in
// their own columns for ad-hoc SQL; the full totals live in stats.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
	now    func() time.Time

	last *analytics.AggregatedStats
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
		now:    time.Now,
	}
}

// Migrate creates the snapshot table and its index in one transaction.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.InTx(ctx, func(q postgres.Querier) error {
		for _, stmt := range schema {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrating search_stats_snapshots: %w", err)
			}
		}
		return nil
	})
}

// Save writes stats unless nothing was searched or reloaded since the last
// write. It reports whether a row was written.
func (s *Store) Save(ctx context.Context, stats analytics.AggregatedStats) (bool, error) {
	if s.last != nil && s.last.TotalSearches == stats.TotalSearches && s.last.Reloads == stats.Reloads {
		return false, nil
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return false, fmt.Errorf("encoding search stats: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_stats_snapshots
		    (captured_at, total_searches, zero_results, reloads, corpus_documents, stats)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.now().UTC(), stats.TotalSearches, stats.ZeroResultCount, stats.Reloads, stats.CorpusDocuments, data,
	)
	if err != nil {
		return false, fmt.Errorf("saving search stats snapshot: %w", err)
	}
	s.last = &stats
	s.logger.Debug("search stats snapshot saved", "total_searches", stats.TotalSearches, "zero_results", stats.ZeroResultCount)
	return true, nil
}

// Latest returns the newest snapshot, or nil when none exists.
func (s *Store) Latest(ctx context.Context) (*analytics.Snapshot, error) {
	snaps, err := s.ListSnapshots(ctx, 1)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return &snaps[0], nil
}

// ListSnapshots returns up to limit snapshots, newest first. Rows whose
// stats no longer decode are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT captured_at, stats FROM search_stats_snapshots ORDER BY captured_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing search stats snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []analytics.Snapshot
	for rows.Next() {
		var (
			snap analytics.Snapshot
			data []byte
		)
		if err := rows.Scan(&snap.CapturedAt, &data); err != nil {
			return nil, fmt.Errorf("scanning search stats snapshot: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			s.logger.Warn("skipping undecodable snapshot", "captured_at", snap.CapturedAt, "error", err)
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Prune deletes all but the newest keep snapshots and returns how many
// rows went.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM search_stats_snapshots WHERE id NOT IN (
		    SELECT id FROM search_stats_snapshots ORDER BY captured_at DESC, id DESC LIMIT $1
		 )`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning search stats snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Restore seeds agg from the newest snapshot, if any.
func (s *Store) Restore(ctx context.Context, agg *analytics.Aggregator) error {
	snap, err := s.Latest(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		s.logger.Info("no search stats snapshot to restore")
		return nil
	}
	agg.Seed(snap.Stats)
	s.last = &snap.Stats
	s.logger.Info("search stats restored",
		"captured_at", snap.CapturedAt,
		"total_searches", snap.Stats.TotalSearches,
	)
	return nil
}

// Run saves agg every interval and prunes to retain rows, until ctx is
// cancelled. A final save is attempted on the way out.
func (s *Store) Run(ctx context.Context, agg *analytics.Aggregator, interval time.Duration, retain int) {
	s.logger.Info("search stats snapshots started", "interval", interval, "retain", retain)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			saved, err := s.Save(ctx, agg.Stats())
			if err != nil {
				s.logger.Error("search stats snapshot failed", "error", err)
				continue
			}
			if !saved {
				continue
			}
			if n, err := s.Prune(ctx, retain); err != nil {
				s.logger.Error("pruning snapshots failed", "error", err)
			} else if n > 0 {
				s.logger.Debug("old snapshots pruned", "deleted", n)
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := s.Save(flushCtx, agg.Stats()); err != nil {
				s.logger.Error("final search stats snapshot failed", "error", err)
			}
			return
		}
	}
}
