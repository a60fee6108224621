package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-courier/event"
)

/* StoreCollector implements Collector on top of the event store's Stats
 * interface, so the same collector serves both the Postgres and Redis
 * backends.
 */
type StoreCollector struct {
	stats event.Stats
}

// NewStoreCollector creates a collector backed by the given store
func NewStoreCollector(stats event.Stats) *StoreCollector {
	return &StoreCollector{
		stats: stats,
	}
}

// Collect gathers a full snapshot from the store
func (c *StoreCollector) Collect(ctx context.Context) (Metrics, error) {
	statusCounts, err := c.GetStatusCounts(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting status counts: %w", err)
	}

	queueDepth, err := c.GetQueueDepth(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting queue depth: %w", err)
	}

	return Metrics{
		StatusCounts: statusCounts,
		QueueDepth:   queueDepth,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// GetStatusCounts returns event counts grouped by status. Statuses with
// no events are reported as zero so dashboards always see every series.
func (c *StoreCollector) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := c.stats.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	for _, s := range []event.Status{event.Pending, event.InFlight, event.Delivered, event.Failed, event.Expired} {
		if _, ok := counts[s.String()]; !ok {
			counts[s.String()] = 0
		}
	}
	return counts, nil
}

// GetQueueDepth returns the number of pending events due right now
func (c *StoreCollector) GetQueueDepth(ctx context.Context) (int64, error) {
	return c.stats.QueueDepth(ctx, time.Now().UTC())
}
