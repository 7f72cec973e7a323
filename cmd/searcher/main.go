// Command searcher loads the corpus and serves the search API.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/synonym"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "source", cfg.Corpus.Source)

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		exporter := metrics.NewExporter(cfg.Metrics.Port, nil)
		exporter.Start()
		defer exporter.Shutdown(context.Background())
	}
	checker := health.NewChecker()

	var db *postgres.Client
	if cfg.Corpus.Source == config.SourcePostgres {
		var err error
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		checker.Register("postgres", health.PingCheck(db.Ping, false))
	}
	src, err := source.FromConfig(cfg.Corpus, db)
	if err != nil {
		return err
	}

	syn, err := loadSynonyms(cfg.Synonyms.Path)
	if err != nil {
		return err
	}

	engine := indexer.NewEngine(src, m)
	checker.Register("corpus", health.CorpusCheck(engine.Documents))

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, true))
			engine.OnSwap(func(ctx context.Context, _ *index.Corpus) {
				if err := queryCache.Invalidate(ctx); err != nil {
					slog.Error("cache invalidation after reload failed", "error", err)
				}
			})
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collectorCtx, cancelCollector := context.WithCancel(context.Background())
		collector.Start(collectorCtx)
		defer func() {
			cancelCollector()
			collector.Close()
		}()
		engine.OnSwap(func(_ context.Context, c *index.Corpus) {
			collector.TrackReload(analytics.ReloadEvent{
				Status:     "success",
				Documents:  c.Len(),
				Vocabulary: c.Vocabulary.Len(),
				Timestamp:  c.BuiltAt,
			})
		})
	}

	if _, err := engine.Load(ctx); err != nil {
		return fmt.Errorf("initial corpus load: %w", err)
	}

	if cfg.Kafka.Enabled {
		reloads := consumer.New(cfg.Kafka, engine)
		checker.Register("reload-consumer", health.ConsumerCheck(func() (int64, int64) {
			st := reloads.Stats()
			return st.Processed, st.Failed
		}))
		go func() {
			if err := reloads.Start(ctx); err != nil {
				slog.Error("reload consumer error", "error", err)
			}
		}()
	}

	exec := executor.New(engine, syn, cfg.Search,
		executor.WithMetrics(m),
		executor.WithShards(cfg.Search.Shards),
	)
	opts := []handler.Option{handler.WithMetrics(m)}
	if queryCache != nil {
		opts = append(opts, handler.WithCache(queryCache))
	}
	if collector != nil {
		opts = append(opts, handler.WithTracker(collector))
	}
	h := handler.New(exec, engine, cfg.Search, opts...)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateWindow)
		limiter.StartEviction(ctx, 5*time.Minute)
		mws = append(mws, middleware.RateLimit(limiter))
		slog.Info("rate limiting enabled", "limit", cfg.Server.RateLimit, "window", cfg.Server.RateWindow)
	}
	mws = append(mws, middleware.Timeout(cfg.Server.WriteTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "health_checks", checker.Names())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

func loadSynonyms(path string) (*synonym.Table, error) {
	if path == "" {
		return nil, nil
	}
	syn, err := synonym.LoadFile(path)
	if err != nil {
		return nil, err
	}
	slog.Info("synonyms loaded", "path", path, "entries", syn.Len())
	return syn, nil
}
