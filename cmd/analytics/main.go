// Command analytics folds the query and reload events published by the
// searcher into running totals and serves them over HTTP. With
// analytics.persist set, the totals are snapshotted to PostgreSQL and
// restored on start.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/postgres"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	if !cfg.Kafka.Enabled {
		return errors.New("analytics service requires kafka.enabled")
	}
	m := metrics.New(nil)
	checker := health.NewChecker()

	agg := analytics.NewAggregator(nil)
	events := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, cfg.Kafka.ConsumerGroup+"-analytics", analytics.HandleEvent(agg))
	agg.Attach(events)
	checker.Register("analytics-consumer", health.ConsumerCheck(func() (int64, int64) {
		st := events.Stats()
		return st.Processed, st.Failed
	}))

	var store *aggregator.Store
	if cfg.Analytics.Persist {
		var closeDB func()
		var err error
		if store, closeDB, err = openStore(ctx, cfg.Postgres, checker); err != nil {
			return err
		}
		defer closeDB()
		if err := store.Restore(ctx, agg); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return agg.Start(ctx) })
	var history analytics.History
	if store != nil {
		g.Go(func() error {
			store.Run(ctx, agg, cfg.Analytics.SnapshotInterval, aggregator.DefaultRetain)
			return nil
		})
		history = store
	}

	if cfg.Metrics.Enabled {
		exporter := metrics.NewExporter(cfg.Metrics.Port, nil)
		exporter.Start()
		defer exporter.Shutdown(context.Background())
	}

	h := analytics.NewHandler(agg, history)
	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, middleware.RequestID, middleware.Metrics(m)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("analytics service listening",
			"addr", server.Addr,
			"topic", cfg.Kafka.Topics.AnalyticsEvents,
			"persist", cfg.Analytics.Persist,
			"health_checks", checker.Names(),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore connects to PostgreSQL and prepares the snapshot table.
func openStore(ctx context.Context, cfg config.PostgresConfig, checker *health.Checker) (*aggregator.Store, func(), error) {
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := aggregator.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	checker.Register("postgres", health.PingCheck(db.Ping, true))
	return store, func() { db.Close() }, nil
}
