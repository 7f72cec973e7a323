package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"text/tabwriter"
	"time"
)

type recorder struct {
	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int
	failures    int
	zeroResults int
	suggested   int
	cacheHits   int
}

func newRecorder() *recorder {
	return &recorder{
		latencies:   make([]time.Duration, 0, 1024),
		statusCodes: make(map[int]int),
	}
}

func (r *recorder) fail() {
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
}

func (r *recorder) record(latency time.Duration, status int, reply searchReply) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, latency)
	r.statusCodes[status]++
	if status != 200 {
		return
	}
	if reply.TotalHits == 0 {
		r.zeroResults++
	}
	if reply.Suggestion != "" {
		r.suggested++
	}
	if reply.CacheHit {
		r.cacheHits++
	}
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.latencies) + r.failures
}

func (r *recorder) report(out io.Writer, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := len(r.latencies) + r.failures
	ok := r.statusCodes[200]
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "requests\t%d\n", total)
	fmt.Fprintf(tw, "ok\t%d\n", ok)
	fmt.Fprintf(tw, "transport failures\t%d\n", r.failures)
	if total > 0 {
		fmt.Fprintf(tw, "requests/sec\t%.2f\n", float64(total)/elapsed.Seconds())
	}
	if ok > 0 {
		fmt.Fprintf(tw, "zero results\t%.1f%%\n", 100*float64(r.zeroResults)/float64(ok))
		fmt.Fprintf(tw, "with suggestion\t%.1f%%\n", 100*float64(r.suggested)/float64(ok))
		fmt.Fprintf(tw, "cache hits\t%.1f%%\n", 100*float64(r.cacheHits)/float64(ok))
	}

	if len(r.latencies) > 0 {
		sorted := slices.Clone(r.latencies)
		slices.Sort(sorted)
		var sum time.Duration
		for _, l := range sorted {
			sum += l
		}
		fmt.Fprintf(tw, "latency min\t%s\n", sorted[0])
		fmt.Fprintf(tw, "latency avg\t%s\n", sum/time.Duration(len(sorted)))
		for _, p := range []float64{50, 90, 99} {
			fmt.Fprintf(tw, "latency p%.0f\t%s\n", p, percentile(sorted, p))
		}
		fmt.Fprintf(tw, "latency max\t%s\n", sorted[len(sorted)-1])
	}

	codes := make([]int, 0, len(r.statusCodes))
	for code := range r.statusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(tw, "status %d\t%d\n", code, r.statusCodes[code])
	}
	tw.Flush()
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
