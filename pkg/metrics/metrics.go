// Package metrics defines the Prometheus collectors shared by the Moogle
// services. Every series lives under the "moogle" namespace.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moogle"

var (
	httpBuckets   = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	searchBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}
	hitBuckets    = []float64{0, 1, 5, 10, 25, 50, 100, 500}
)

type Metrics struct {
	// http
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// search
	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram
	SuggestionsTotal   prometheus.Counter

	// cache
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	CircuitBreakerState *prometheus.GaugeVec

	// corpus
	CorpusDocuments    prometheus.Gauge
	VocabularySize     prometheus.Gauge
	CorpusReloadsTotal *prometheus.CounterVec
}

func counter(subsystem, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
}

func counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
}

func gauge(subsystem, name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
}

func histogramVec(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

// New builds the collectors and registers them with reg, or with the
// default registerer when reg is nil. Registering twice on one registry
// panics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal:    counterVec("http", "requests_total", "HTTP requests by method, route and status code.", "method", "path", "status"),
		HTTPRequestDuration:  histogramVec("http", "request_duration_seconds", "HTTP request latency.", httpBuckets, "method", "path"),
		HTTPRequestsInFlight: gauge("http", "requests_in_flight", "HTTP requests currently being served."),

		SearchQueriesTotal: counterVec("search", "queries_total", "Executed queries by outcome: hit, zero_result or error.", "result_type"),
		SearchLatency:      histogramVec("search", "latency_seconds", "End-to-end query latency split by cache status.", searchBuckets, "cache_status"),
		SearchResultsCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "matched_documents",
			Help:      "Documents with a positive score per query.",
			Buckets:   hitBuckets,
		}),
		SuggestionsTotal: counter("search", "suggestions_total", "Queries answered with a spelling suggestion."),

		CacheHitsTotal:   counter("cache", "hits_total", "Result pages served from Redis."),
		CacheMissesTotal: counter("cache", "misses_total", "Result pages not found in Redis."),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "breaker_state",
			Help:      "Breaker state per dependency: 0 closed, 1 open, 2 half-open.",
		}, []string{"name"}),

		CorpusDocuments:    gauge("corpus", "documents", "Documents in the active corpus."),
		VocabularySize:     gauge("corpus", "vocabulary_terms", "Distinct vocabulary terms in the active corpus."),
		CorpusReloadsTotal: counterVec("corpus", "reloads_total", "Corpus builds by status.", "status"),
	}

	reg.MustRegister(m.collectors()...)
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.HTTPRequestsInFlight,
		m.SearchQueriesTotal, m.SearchLatency, m.SearchResultsCount, m.SuggestionsTotal,
		m.CacheHitsTotal, m.CacheMissesTotal, m.CircuitBreakerState,
		m.CorpusDocuments, m.VocabularySize, m.CorpusReloadsTotal,
	}
}

// Handler returns the scrape handler for g, falling back to the default
// gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
