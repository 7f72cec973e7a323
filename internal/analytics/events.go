package analytics

import "time"

type EventType string

const (
	EventSearch EventType = "search"
	EventReload EventType = "reload"
)

// QueryEvent describes one answered search request. Page is 1-based.
type QueryEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	Page       int       `json:"page"`
	Suggestion string    `json:"suggestion,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// ReloadEvent describes one corpus build. Status is "success" or "error".
type ReloadEvent struct {
	Type       EventType `json:"type"`
	Status     string    `json:"status"`
	Documents  int       `json:"documents"`
	Vocabulary int       `json:"vocabulary"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// stamp fills the envelope fields the producer does not set.
func (e QueryEvent) stamp(now time.Time) QueryEvent {
	e.Type = EventSearch
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	}
	return e
}

func (e ReloadEvent) stamp(now time.Time) ReloadEvent {
	e.Type = EventReload
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	}
	return e
}
