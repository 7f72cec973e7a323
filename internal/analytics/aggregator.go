package analytics

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/kafka"
)

// latencyWindow bounds the number of latency samples kept for percentiles.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	SuggestionCount   int64        `json:"suggestion_count"`
	Reloads           int64        `json:"reloads"`
	FailedReloads     int64        `json:"failed_reloads"`
	CorpusDocuments   int          `json:"corpus_documents"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds analytics events into running totals.
type Aggregator struct {
	mu        sync.RWMutex
	totals    AggregatedStats
	latencies *latencyRing
	queries   map[string]int64
	zeroHits  map[string]int64
	started   time.Time
	now       func() time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator returns an empty aggregator. consumer may be nil when
// events arrive through Record or when it is attached later.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies: newLatencyRing(latencyWindow),
		queries:   make(map[string]int64),
		zeroHits:  make(map[string]int64),
		started:   time.Now(),
		now:       time.Now,
		consumer:  consumer,
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// Attach sets the consumer run by Start.
func (a *Aggregator) Attach(consumer *kafka.Consumer) {
	a.consumer = consumer
}

// Start blocks consuming events until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent records each message. Malformed or unknown events come
// back as errors so the consumer counts and skips them.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(_ context.Context, _, value []byte) error {
		return agg.Record(value)
	}
}

// Record decodes and folds one encoded event.
func (a *Aggregator) Record(value []byte) error {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		return err
	}
	switch envelope.Type {
	case EventSearch:
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			return err
		}
		a.recordQuery(event)
	case EventReload:
		event, err := kafka.DecodeJSON[ReloadEvent](value)
		if err != nil {
			return err
		}
		a.recordReload(event)
	default:
		return fmt.Errorf("unknown analytics event type %q", envelope.Type)
	}
	return nil
}

func (a *Aggregator) recordQuery(e QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := &a.totals
	t.TotalSearches++
	if e.CacheHit {
		t.CacheHits++
	} else {
		t.CacheMisses++
	}
	if e.Suggestion != "" {
		t.SuggestionCount++
	}
	if e.TotalHits == 0 {
		t.ZeroResultCount++
		a.zeroHits[e.Query]++
	}
	a.queries[e.Query]++
	a.latencies.add(e.LatencyMs)
}

func (a *Aggregator) recordReload(e ReloadEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e.Status == "success" {
		a.totals.Reloads++
		a.totals.CorpusDocuments = e.Documents
	} else {
		a.totals.FailedReloads++
	}
}

// Seed adds the counters of a persisted snapshot to the running totals.
// Only the top queries it lists are restored, and no latency samples.
func (a *Aggregator) Seed(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := &a.totals
	t.TotalSearches += s.TotalSearches
	t.CacheHits += s.CacheHits
	t.CacheMisses += s.CacheMisses
	t.ZeroResultCount += s.ZeroResultCount
	t.SuggestionCount += s.SuggestionCount
	t.Reloads += s.Reloads
	t.FailedReloads += s.FailedReloads
	if t.CorpusDocuments == 0 {
		t.CorpusDocuments = s.CorpusDocuments
	}
	for _, q := range s.TopQueries {
		a.queries[q.Query] += q.Count
	}
	for _, q := range s.ZeroResultQueries {
		a.zeroHits[q.Query] += q.Count
	}
}

// Stats computes derived figures over the current totals.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := a.totals
	if samples := a.latencies.sorted(); len(samples) > 0 {
		var sum int64
		for _, v := range samples {
			sum += v
		}
		out.AvgLatencyMs = float64(sum) / float64(len(samples))
		out.P50LatencyMs = nearestRank(samples, 50)
		out.P95LatencyMs = nearestRank(samples, 95)
		out.P99LatencyMs = nearestRank(samples, 99)
	}
	out.TopQueries = mostFrequent(a.queries, 10)
	out.ZeroResultQueries = mostFrequent(a.zeroHits, 10)
	if minutes := a.now().Sub(a.started).Minutes(); minutes > 0 {
		out.QueriesPerMinute = float64(out.TotalSearches) / minutes
	}
	return out
}

// latencyRing keeps the most recent samples, overwriting the oldest.
type latencyRing struct {
	buf  []int64
	next int
}

func newLatencyRing(size int) *latencyRing {
	return &latencyRing{buf: make([]int64, 0, size)}
}

func (r *latencyRing) add(v int64) {
	if len(r.buf) < cap(r.buf) {
		r.buf = append(r.buf, v)
		return
	}
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
}

func (r *latencyRing) len() int { return len(r.buf) }

func (r *latencyRing) sorted() []int64 {
	out := slices.Clone(r.buf)
	slices.Sort(out)
	return out
}

// nearestRank is the smallest sample with at least pct percent of the
// samples at or below it.
func nearestRank(sorted []int64, pct int) int64 {
	rank := (pct*len(sorted) + 99) / 100
	return sorted[max(rank, 1)-1]
}

// mostFrequent returns the n highest counts, ties in query order.
func mostFrequent(counts map[string]int64, n int) []QueryCount {
	out := make([]QueryCount, 0, len(counts))
	for q, c := range counts {
		out = append(out, QueryCount{Query: q, Count: c})
	}
	slices.SortFunc(out, func(x, y QueryCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return strings.Compare(x.Query, y.Query)
	})
	return out[:min(n, len(out))]
}
