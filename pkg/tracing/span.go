// Package tracing times the stages of a request as a tree of spans carried
// in the context, and logs the tree once the request is done.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/logger"
)

type spanKey struct{}

type Span struct {
	name    string
	traceID string
	started time.Time

	mu       sync.Mutex
	took     time.Duration
	attrs    []slog.Attr
	children []*Span
}

// Start opens a span under the one in ctx. Without a parent it opens a
// root whose trace id is the request id, or a fresh UUID.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{name: name, started: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		s.traceID = parent.traceID
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	} else if s.traceID = logger.RequestID(ctx); s.traceID == "" {
		s.traceID = uuid.NewString()
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

func (s *Span) Name() string    { return s.name }
func (s *Span) TraceID() string { return s.traceID }

func (s *Span) End() {
	s.mu.Lock()
	s.took = time.Since(s.started)
	s.mu.Unlock()
}

// Duration is zero until End.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.took
}

func (s *Span) Set(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log writes the tree as one debug record, children nested as groups.
func (s *Span) Log(l *slog.Logger) {
	l.Debug("trace", "trace_id", s.traceID, s.attr())
}

func (s *Span) attr() slog.Attr {
	s.mu.Lock()
	fields := make([]any, 0, len(s.attrs)+len(s.children)+1)
	fields = append(fields, slog.Float64("ms", float64(s.took.Microseconds())/1000))
	for _, a := range s.attrs {
		fields = append(fields, a)
	}
	children := s.children
	s.mu.Unlock()

	for _, c := range children {
		fields = append(fields, c.attr())
	}
	return slog.Group(s.name, fields...)
}
