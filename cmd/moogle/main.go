// Command moogle queries a corpus from the terminal and administers a
// running search service.
//
// Usage:
//
//	moogle query --dir content "black ^cat !dog"
//	moogle stats --dir content
//	moogle reload --reason "new documents"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/pagination"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/synonym"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	corpusFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Directory of documents (overrides corpus.dir)",
		},
		&cli.StringFlag{
			Name:  "synonyms",
			Usage: "Synonym table file (overrides synonyms.path)",
		},
	}
	return &cli.App{
		Name:      "moogle",
		Usage:     "Search a text corpus with TF-IDF ranking",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: func(c *cli.Context) error {
			slog.SetDefault(logger.New(c.App.ErrWriter, c.String("log-level"), "text"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "query",
				Usage:     "Run a query and print one page of results",
				ArgsUsage: "<query>",
				Action:    queryCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "page",
						Usage: "Page number or one of init, prev, next, end",
						Value: "1",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full result as JSON",
					},
				}, corpusFlags...),
			},
			{
				Name:   "stats",
				Usage:  "Index the corpus and print its statistics",
				Action: statsCommand,
				Flags:  corpusFlags,
			},
			{
				Name:   "reload",
				Usage:  "Ask running search services to rebuild their corpus",
				Action: reloadCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "reason",
						Usage: "Reason recorded with the request",
						Value: "manual",
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := c.String("dir"); dir != "" {
		cfg.Corpus.Source = config.SourceDirectory
		cfg.Corpus.Dir = dir
	}
	if path := c.String("synonyms"); path != "" {
		cfg.Synonyms.Path = path
	}
	return cfg, nil
}

// openEngine loads the corpus described by cfg. The returned func releases
// any database connection.
func openEngine(ctx context.Context, cfg *config.Config) (*indexer.Engine, func(), error) {
	release := func() {}
	var db *postgres.Client
	if cfg.Corpus.Source == config.SourcePostgres {
		var err error
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		release = func() { db.Close() }
	}
	src, err := source.FromConfig(cfg.Corpus, db)
	if err != nil {
		release()
		return nil, nil, err
	}
	engine := indexer.NewEngine(src, nil)
	if _, err := engine.Load(ctx); err != nil {
		release()
		return nil, nil, err
	}
	return engine, release, nil
}

func queryCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a query is required")
	}
	raw := c.Args().First()
	for _, arg := range c.Args().Tail() {
		raw += " " + arg
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	var syn *synonym.Table
	if cfg.Synonyms.Path != "" {
		if syn, err = synonym.LoadFile(cfg.Synonyms.Path); err != nil {
			return err
		}
	}
	engine, release, err := openEngine(c.Context, cfg)
	if err != nil {
		return err
	}
	defer release()

	exec := executor.New(engine, syn, cfg.Search, executor.WithShards(cfg.Search.Shards))
	result, err := exec.Execute(c.Context, raw)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	window := pagination.NewWindow(len(result.Items), cfg.Search.PageSize, cfg.Search.PageRange)
	if err := window.Set(c.String("page")); err != nil {
		return err
	}
	if result.Suggestion != "" {
		fmt.Fprintf(out, "Did you mean: %s\n\n", result.Suggestion)
	}
	if result.TotalHits == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for _, item := range pagination.Page(result.Items, window.Now, cfg.Search.PageSize) {
		fmt.Fprintf(out, "%s  (%s, %.4f)\n  %s\n\n", item.Title, item.Link, item.Score, item.Snippet)
	}
	fmt.Fprintf(out, "%d results, page %d of %d %v\n", result.TotalHits, window.Now, window.Count, window.Pages())
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	start := time.Now()
	engine, release, err := openEngine(c.Context, cfg)
	if err != nil {
		return err
	}
	defer release()

	stats := engine.Stats()
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "documents\t%d\n", stats.Documents)
	fmt.Fprintf(tw, "vocabulary\t%d\n", stats.Vocabulary)
	fmt.Fprintf(tw, "tokens\t%d\n", stats.Tokens)
	fmt.Fprintf(tw, "indexed in\t%v\n", time.Since(start).Round(time.Millisecond))
	return tw.Flush()
}

func reloadCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka is disabled; set kafka.enabled to publish reload requests")
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusReload)
	defer producer.Close()

	host, _ := os.Hostname()
	req := consumer.ReloadRequest{
		Reason:      c.String("reason"),
		RequestedBy: host,
		RequestID:   uuid.NewString(),
		RequestedAt: time.Now().UTC(),
	}
	if err := producer.Publish(c.Context, kafka.Event{Key: "reload", Value: req}); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "reload requested (%s)\n", req.RequestID)
	return nil
}
