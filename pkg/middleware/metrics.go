package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/metrics"
)

// fixedRoutes are reported as-is in the path label.
var fixedRoutes = map[string]struct{}{
	"/api/v1/search":            {},
	"/api/v1/stats":             {},
	"/api/v1/admin/reload":      {},
	"/api/v1/cache/stats":       {},
	"/api/v1/cache/invalidate":  {},
	"/api/v1/analytics":         {},
	"/api/v1/analytics/history": {},
	"/health/live":              {},
	"/health/ready":             {},
}

const documentRoute = "/api/v1/documents/"

// routeLabel maps a request path onto a bounded label set. Document names
// collapse to one route and unknown paths to "other".
func routeLabel(path string) string {
	if _, ok := fixedRoutes[path]; ok {
		return path
	}
	if name, ok := strings.CutPrefix(path, documentRoute); ok && name != "" {
		return documentRoute + "{name}"
	}
	return "other"
}

// Metrics records request totals, latency and the in-flight gauge.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			started := time.Now()
			sr := &statusRecorder{ResponseWriter: w}
			defer func() {
				m.HTTPRequestsInFlight.Dec()
				route := routeLabel(r.URL.Path)
				m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sr.code())).Inc()
				m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
			}()
			next.ServeHTTP(sr, r)
		})
	}
}

// statusRecorder remembers the first status written.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
