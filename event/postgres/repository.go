package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcelsud/webhook-courier/event"
)

/* PostgreSQL implementation of event.Repository
 *
 * The claim and outcome transitions are single conditional statements:
 * row locks with SKIP LOCKED make concurrent claimers pick disjoint rows,
 * and the status predicate in each UPDATE makes the transition commit only
 * if the row is still in the expected state. That is what lets any number
 * of dispatcher processes share one table without in-memory coordination.
 */

// DB is the subset of pgxpool.Pool the repository needs.
// pgxmock satisfies it, which keeps the SQL paths unit-testable.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type Repository struct {
	db     DB
	logger *slog.Logger
}

// NewRepository creates a repository on top of an existing connection pool
func NewRepository(db DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Connect opens a pgx pool for the given DSN and verifies connectivity
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return NewRepository(pool, logger), nil
}

const eventColumns = `id, vendor_id, event_type, payload, target_url, status,
		attempts, max_attempts, next_retry_at, last_attempt_at,
		response_status, COALESCE(response_body, ''), created_at, updated_at`

// Enqueue inserts a new pending event.
// updated_at is stamped here, as in every other mutation in this store.
func (r *Repository) Enqueue(ctx context.Context, e event.Event) (string, error) {
	const sql = `
		INSERT INTO webhook_events
			(id, vendor_id, event_type, payload, target_url, status,
			 attempts, max_attempts, next_retry_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $10)
	`

	_, err := r.db.Exec(ctx, sql,
		e.ID, e.VendorID, e.EventType, e.Payload, e.TargetURL,
		e.Status.String(), e.Attempts, e.MaxAttempts, e.CreatedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting event: %w", err)
	}

	return e.ID, nil
}

// Get retrieves an event by ID
func (r *Repository) Get(ctx context.Context, id string) (event.Event, error) {
	sql := `SELECT ` + eventColumns + ` FROM webhook_events WHERE id = $1`

	e, err := scanEvent(r.db.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return event.Event{}, event.ErrNotFound
	}
	if err != nil {
		return event.Event{}, fmt.Errorf("getting event: %w", err)
	}

	return e, nil
}

// ListByVendor returns a vendor's most recent events, newest first
func (r *Repository) ListByVendor(ctx context.Context, vendorID string, statusFilter event.Status, limit int) ([]event.Event, error) {
	sql := `SELECT ` + eventColumns + ` FROM webhook_events WHERE vendor_id = $1`
	args := []any{vendorID}

	if statusFilter != 0 {
		sql += ` AND status = $2`
		args = append(args, statusFilter.String())
	}
	args = append(args, limit)
	sql += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

/* Claim is the central correctness guarantee of the engine.
 *
 * The CTE locks up to limit due pending rows; SKIP LOCKED makes a second
 * claimer racing on the same rows skip them instead of blocking, so each
 * row has exactly one winner. The outer UPDATE re-checks the status so
 * the transition only commits for rows still pending at commit time.
 */
func (r *Repository) Claim(ctx context.Context, limit int, now time.Time) ([]event.Event, error) {
	const sql = `
		WITH due AS (
			SELECT id
			FROM webhook_events
			WHERE status = 'pending'
			  AND (next_retry_at IS NULL OR next_retry_at <= $2)
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE webhook_events e
		SET status = 'in_flight', last_attempt_at = $2, updated_at = $2
		FROM due
		WHERE e.id = due.id AND e.status = 'pending'
		RETURNING e.id, e.vendor_id, e.event_type, e.payload, e.target_url, e.status,
			e.attempts, e.max_attempts, e.next_retry_at, e.last_attempt_at,
			e.response_status, COALESCE(e.response_body, ''), e.created_at, e.updated_at
	`

	rows, err := r.db.Query(ctx, sql, limit, now)
	if err != nil {
		return nil, fmt.Errorf("claiming events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// RecordOutcome applies a worker's outcome to an in_flight event.
// The status predicate rejects duplicate or stale reports: when the row is
// no longer in_flight (someone else won, or the claim was reclaimed), zero
// rows match and the report is dropped.
func (r *Repository) RecordOutcome(ctx context.Context, id string, outcome event.Outcome, now time.Time) error {
	if err := outcome.Validate(); err != nil {
		return fmt.Errorf("validating outcome: %w", err)
	}

	const sql = `
		UPDATE webhook_events
		SET status = $2,
		    attempts = attempts + 1,
		    next_retry_at = $3,
		    response_status = $4,
		    response_body = $5,
		    updated_at = $6
		WHERE id = $1 AND status = 'in_flight'
	`

	tag, err := r.db.Exec(ctx, sql,
		id, outcome.Status.String(), outcome.NextRetryAt,
		outcome.ResponseStatus, nullIfEmpty(outcome.ResponseBody), now,
	)
	if err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Warn("outcome rejected, event not in_flight",
			"event_id", id,
			"outcome", outcome.Status.String(),
		)
	}

	return nil
}

// ReleaseStale returns long-running in_flight events to pending so work
// lost to a crashed worker is picked up again on a later cycle
func (r *Repository) ReleaseStale(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	const sql = `
		UPDATE webhook_events
		SET status = 'pending', next_retry_at = NULL, updated_at = $2
		WHERE status = 'in_flight' AND last_attempt_at < $1
	`

	tag, err := r.db.Exec(ctx, sql, now.Add(-olderThan), now)
	if err != nil {
		return 0, fmt.Errorf("releasing stale events: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// CountByStatus returns the number of events per status
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	const sql = `SELECT status, COUNT(*) FROM webhook_events GROUP BY status`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("counting events by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// QueueDepth returns how many pending events are due at now
func (r *Repository) QueueDepth(ctx context.Context, now time.Time) (int64, error) {
	const sql = `
		SELECT COUNT(*)
		FROM webhook_events
		WHERE status = 'pending'
		  AND (next_retry_at IS NULL OR next_retry_at <= $1)
	`

	var depth int64
	if err := r.db.QueryRow(ctx, sql, now).Scan(&depth); err != nil {
		return 0, fmt.Errorf("counting due events: %w", err)
	}

	return depth, nil
}

// Close releases the underlying connection pool
func (r *Repository) Close(ctx context.Context) error {
	r.db.Close()
	return nil
}

// Helper functions

type scannable interface {
	Scan(dest ...any) error
}

func scanEvent(row scannable) (event.Event, error) {
	var e event.Event
	var status string

	err := row.Scan(
		&e.ID, &e.VendorID, &e.EventType, &e.Payload, &e.TargetURL, &status,
		&e.Attempts, &e.MaxAttempts, &e.NextRetryAt, &e.LastAttemptAt,
		&e.ResponseStatus, &e.ResponseBody, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return event.Event{}, err
	}

	e.Status = event.NewStatus(status)
	return e, nil
}

func collectEvents(rows pgx.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
