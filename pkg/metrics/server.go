package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter serves a gatherer on a listener of its own, away from the
// search API.
type Exporter struct {
	server *http.Server
	logger *slog.Logger
}

func NewExporter(port int, g prometheus.Gatherer) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler(g))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/metrics", http.StatusFound)
	})
	return &Exporter{
		server: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(port)),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		logger: slog.Default().With("component", "metrics-exporter"),
	}
}

func (e *Exporter) Addr() string { return e.server.Addr }

// Start listens in the background. Listen errors are logged, not returned.
func (e *Exporter) Start() {
	go func() {
		e.logger.Info("metrics exporter listening", "addr", e.server.Addr)
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics exporter stopped", "error", err)
		}
	}()
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
