package metrics

import (
	"context"
	"time"
)

// Metrics represents a snapshot of the delivery engine's state.
type Metrics struct {
	// StatusCounts maps status name to the number of events in that status
	StatusCounts map[string]int64 `json:"status_counts"`

	// QueueDepth is the number of pending events due for delivery now
	QueueDepth int64 `json:"queue_depth"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// Collector defines the interface for collecting metrics from the engine.
type Collector interface {
	// Collect gathers a full snapshot
	Collect(ctx context.Context) (Metrics, error)

	// GetStatusCounts returns the count of events by status
	GetStatusCounts(ctx context.Context) (map[string]int64, error)

	// GetQueueDepth returns the number of pending events currently due
	GetQueueDepth(ctx context.Context) (int64, error)
}
