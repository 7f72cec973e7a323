// Command loadtest drives concurrent queries against a running searcher
// and prints a latency and outcome report.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 30s [-queries queries.txt]
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

var defaultQueries = []string{
	"cat",
	"the black cat",
	"!dog cat",
	"^house garden",
	"*river water",
	"ocean ~ island",
	"mountian",
	"king queen castle",
	"[feline]",
	"night sky stars",
}

type options struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	queries     []string
}

// searchReply is the part of the search response the report needs.
type searchReply struct {
	TotalHits  int    `json:"total_hits"`
	Suggestion string `json:"suggestion"`
	CacheHit   bool   `json:"cache_hit"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	queriesPath := flag.String("queries", "", "file with one query per line")
	flag.Parse()

	queries := defaultQueries
	if *queriesPath != "" {
		var err error
		if queries, err = readQueries(*queriesPath); err != nil {
			fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
			os.Exit(1)
		}
	}

	opts := options{baseURL: *baseURL, concurrency: *concurrency, duration: *duration, queries: queries}
	fmt.Printf("target %s, %d workers for %s, %d distinct queries\n", opts.baseURL, opts.concurrency, opts.duration, len(opts.queries))

	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()
	rec := run(ctx, opts)
	rec.report(os.Stdout, opts.duration)
	if rec.total() == 0 {
		fmt.Fprintln(os.Stderr, "no requests completed; is the searcher running?")
		os.Exit(1)
	}
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s has no queries", path)
	}
	return queries, nil
}

// run issues queries round-robin from every worker until ctx is done.
func run(ctx context.Context, opts options) *recorder {
	rec := newRecorder()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.concurrency * 2,
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var g errgroup.Group
	for w := 0; w < opts.concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				q := opts.queries[i%len(opts.queries)]
				searchOnce(ctx, client, opts.baseURL, q, rec)
			}
			return nil
		})
	}
	g.Wait()
	return rec
}

func searchOnce(ctx context.Context, client *http.Client, baseURL, query string, rec *recorder) {
	target := fmt.Sprintf("%s/api/v1/search?q=%s", baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		rec.fail()
		return
	}
	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			rec.fail()
		}
		return
	}
	defer resp.Body.Close()

	var reply searchReply
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
			rec.fail()
			return
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	rec.record(latency, resp.StatusCode, reply)
}
