// Package health probes the dependencies of a Moogle service and serves
// the liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

var severity = map[Status]int{StatusUp: 0, StatusDegraded: 1, StatusDown: 2}

// worse returns the more severe of a and b.
func worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// checkTimeout bounds each probe inside a readiness request.
const checkTimeout = 2 * time.Second

type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the outcome of one readiness pass. Status is the worst
// component status.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
	logger *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]Check),
		logger: slog.Default().With("component", "health"),
	}
}

// Register adds a check, replacing any with the same name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.checks))
}

// Run probes every component concurrently.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	results := make(map[string]ComponentHealth, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Go(func() {
			res := probe(ctx, check)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		})
	}
	wg.Wait()

	report := Report{Status: StatusUp, Components: results, CheckedAt: time.Now().UTC()}
	for name, res := range results {
		if res.Status != StatusUp {
			c.logger.Warn("component unhealthy", "name", name, "status", res.Status, "message", res.Message)
		}
		report.Status = worse(report.Status, res.Status)
	}
	return report
}

func probe(ctx context.Context, check Check) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	started := time.Now()
	res := check(ctx)
	res.Latency = time.Since(started).Round(time.Microsecond).String()
	return res
}

// PingCheck turns a ping into a check. A failed ping is down, or only
// degraded for an optional dependency.
func PingCheck(ping func(ctx context.Context) error, optional bool) Check {
	failed := StatusDown
	if optional {
		failed = StatusDegraded
	}
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: failed, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// CorpusCheck is down until a non-empty corpus is being served.
func CorpusCheck(documents func() int) Check {
	return func(context.Context) ComponentHealth {
		if n := documents(); n > 0 {
			return ComponentHealth{Status: StatusUp, Message: fmt.Sprintf("%d documents", n)}
		}
		return ComponentHealth{Status: StatusDown, Message: "no corpus loaded"}
	}
}

// ConsumerCheck is degraded while a consumer has failed every message it
// has handled so far.
func ConsumerCheck(counts func() (processed, failed int64)) Check {
	return func(context.Context) ComponentHealth {
		processed, failed := counts()
		msg := fmt.Sprintf("%d processed, %d failed", processed, failed)
		if failed > 0 && processed == 0 {
			return ComponentHealth{Status: StatusDegraded, Message: msg}
		}
		return ComponentHealth{Status: StatusUp, Message: msg}
	}
}

// LiveHandler reports the process as alive without probing anything.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 503 only when a component is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
