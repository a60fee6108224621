package event

import (
	"context"
	"errors"
	"time"
)

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

// ErrNotFound is returned by readers when no event matches the given id
var ErrNotFound = errors.New("event not found")

// Reader provides read operations for events
type Reader interface {
	/* Context is always the first parameter in functions that do I/O
	 * This allows for cancellation, timeouts, and shared values
	 */
	Get(ctx context.Context, id string) (Event, error)
	/* ListByVendor returns the vendor's most recent events, newest first.
	 * A zero statusFilter means all statuses.
	 */
	ListByVendor(ctx context.Context, vendorID string, statusFilter Status, limit int) ([]Event, error)
}

// Writer provides the producer-facing write operation
type Writer interface {
	// Enqueue persists a new pending event and returns its ID
	Enqueue(ctx context.Context, e Event) (string, error)
}

// Claimer provides the dispatcher/worker side of the state machine.
// All transitions are conditional updates inside the store: a claim only
// commits if the row is still pending, an outcome only if still in_flight.
type Claimer interface {
	/* Claim atomically selects up to limit due pending events and moves
	 * them to in_flight, stamping last_attempt_at = now. Two callers
	 * racing on the same row get exactly one winner; the loser's result
	 * set excludes the row.
	 */
	Claim(ctx context.Context, limit int, now time.Time) ([]Event, error)

	/* RecordOutcome applies a worker's outcome to an in_flight event,
	 * incrementing attempts. An event no longer in_flight is left
	 * untouched and no error is returned: stale reports are no-ops.
	 */
	RecordOutcome(ctx context.Context, id string, outcome Outcome, now time.Time) error

	/* ReleaseStale returns in_flight events whose last attempt started
	 * more than olderThan ago to pending, so work lost to a crashed
	 * worker is eventually reclaimed. Returns how many were released.
	 */
	ReleaseStale(ctx context.Context, olderThan time.Duration, now time.Time) (int, error)
}

// Stats provides aggregate counts for monitoring
type Stats interface {
	// CountByStatus returns the number of events per status name
	CountByStatus(ctx context.Context) (map[string]int64, error)
	// QueueDepth returns how many pending events are due at now
	QueueDepth(ctx context.Context, now time.Time) (int64, error)
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Repository interface {
	Reader
	Writer
	Claimer
	Stats
	Close(ctx context.Context) error
}
