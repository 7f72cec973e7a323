package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, g prometheus.Gatherer) string {
	t.Helper()
	srv := httptest.NewServer(Handler(g))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewRegistersOnPrivateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SearchQueriesTotal.WithLabelValues("hit").Inc()
	m.CorpusDocuments.Set(3)
	m.CacheHitsTotal.Add(2)
	m.VocabularySize.Set(42)

	body := scrape(t, reg)
	assert.Contains(t, body, `moogle_search_queries_total{result_type="hit"} 1`)
	assert.Contains(t, body, "moogle_corpus_documents 3")
	assert.Contains(t, body, "moogle_cache_hits_total 2")
	assert.Contains(t, body, "moogle_corpus_vocabulary_terms 42")

	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}

func TestNewTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestExporterRedirectsRootToMetrics(t *testing.T) {
	e := NewExporter(9464, prometheus.NewRegistry())
	assert.Equal(t, ":9464", e.Addr())

	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/metrics", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
