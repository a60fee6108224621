package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelsud/webhook-courier/event"
)

/* Redis implementation of event.Repository
 *
 * Uses one hash per event for metadata, a sorted set of due events scored
 * by retry time for the dispatcher, and a sorted set of in_flight events
 * scored by claim time for stale recovery.
 *
 * Redis has no row locks, so the conditional transitions run as Lua
 * scripts: a script executes atomically on the server, which gives the
 * same one-winner guarantee the Postgres store gets from its conditional
 * UPDATE. Timestamps are stored as unix seconds, 0 meaning null.
 */

const (
	hashPrefix  = "event"                // event:{event_id}
	dueKey      = "events:due"           // ZSET: id -> due time
	inflightKey = "events:inflight"      // ZSET: id -> claim time
	countsKey   = "events:status_counts" // HASH: status -> count
	vendorKey   = "events:vendor"        // events:vendor:{vendor_id} ZSET: id -> created_at
)

type Repository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int, logger *slog.Logger) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Repository{
		client: client,
		logger: logger,
	}, nil
}

/* claimScript moves due pending events to in_flight, atomically.
 * KEYS: due ZSET, inflight ZSET, status counts HASH
 * ARGV: now (unix), limit
 * Returns the claimed ids. Index entries whose hash is no longer pending
 * are dropped: another claimer already won those.
 */
var claimScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
local claimed = {}
for _, id in ipairs(ids) do
	local key = 'event:' .. id
	redis.call('ZREM', KEYS[1], id)
	if redis.call('HGET', key, 'status') == 'pending' then
		redis.call('HSET', key, 'status', 'in_flight', 'last_attempt_at', ARGV[1], 'updated_at', ARGV[1])
		redis.call('ZADD', KEYS[2], tonumber(ARGV[1]), id)
		redis.call('HINCRBY', KEYS[3], 'pending', -1)
		redis.call('HINCRBY', KEYS[3], 'in_flight', 1)
		table.insert(claimed, id)
	end
end
return claimed
`)

/* outcomeScript applies a worker's outcome, guarded on status == in_flight.
 * KEYS: event hash, due ZSET, inflight ZSET, status counts HASH
 * ARGV: id, new status, next_retry_at (unix or 0), response_status (may be
 * empty), response_body, now (unix)
 * Returns 1 when applied, 0 when the guard rejected the report.
 */
var outcomeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') ~= 'in_flight' then
	return 0
end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'next_retry_at', ARGV[3], 'response_status', ARGV[4], 'response_body', ARGV[5], 'updated_at', ARGV[6])
redis.call('ZREM', KEYS[3], ARGV[1])
redis.call('HINCRBY', KEYS[4], 'in_flight', -1)
redis.call('HINCRBY', KEYS[4], ARGV[2], 1)
if ARGV[2] == 'pending' then
	redis.call('ZADD', KEYS[2], tonumber(ARGV[3]), ARGV[1])
end
return 1
`)

/* releaseStaleScript returns in_flight events claimed before the cutoff
 * to pending.
 * KEYS: inflight ZSET, due ZSET, status counts HASH
 * ARGV: cutoff (unix), now (unix)
 */
var releaseStaleScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local released = 0
for _, id in ipairs(ids) do
	local key = 'event:' .. id
	redis.call('ZREM', KEYS[1], id)
	if redis.call('HGET', key, 'status') == 'in_flight' then
		redis.call('HSET', key, 'status', 'pending', 'next_retry_at', '0', 'updated_at', ARGV[2])
		redis.call('ZADD', KEYS[2], tonumber(ARGV[2]), id)
		redis.call('HINCRBY', KEYS[3], 'in_flight', -1)
		redis.call('HINCRBY', KEYS[3], 'pending', 1)
		released = released + 1
	end
end
return released
`)

// Enqueue stores a new pending event and indexes it as immediately due
func (r *Repository) Enqueue(ctx context.Context, e event.Event) (string, error) {
	hashKey := eventKey(e.ID)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, hashKey, map[string]interface{}{
		"id":              e.ID,
		"vendor_id":       e.VendorID,
		"event_type":      e.EventType,
		"payload":         e.Payload,
		"target_url":      e.TargetURL,
		"status":          e.Status.String(),
		"attempts":        e.Attempts,
		"max_attempts":    e.MaxAttempts,
		"next_retry_at":   0,
		"last_attempt_at": 0,
		"response_status": "",
		"response_body":   "",
		"created_at":      e.CreatedAt.Unix(),
		"updated_at":      e.UpdatedAt.Unix(),
	})
	pipe.ZAdd(ctx, dueKey, redis.Z{Score: float64(e.CreatedAt.Unix()), Member: e.ID})
	pipe.ZAdd(ctx, vendorIndexKey(e.VendorID), redis.Z{Score: float64(e.CreatedAt.Unix()), Member: e.ID})
	pipe.HIncrBy(ctx, countsKey, e.Status.String(), 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("storing event: %w", err)
	}

	return e.ID, nil
}

// Get retrieves an event by ID from its hash
func (r *Repository) Get(ctx context.Context, id string) (event.Event, error) {
	data, err := r.client.HGetAll(ctx, eventKey(id)).Result()
	if err != nil {
		return event.Event{}, fmt.Errorf("getting event: %w", err)
	}
	if len(data) == 0 {
		return event.Event{}, event.ErrNotFound
	}

	return parseEvent(data), nil
}

// ListByVendor walks the vendor index newest first
func (r *Repository) ListByVendor(ctx context.Context, vendorID string, statusFilter event.Status, limit int) ([]event.Event, error) {
	ids, err := r.client.ZRevRange(ctx, vendorIndexKey(vendorID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading vendor index: %w", err)
	}

	events := make([]event.Event, 0, limit)
	for _, id := range ids {
		if len(events) >= limit {
			break
		}

		e, err := r.Get(ctx, id)
		if err != nil {
			// Hash may have expired out from under the index
			continue
		}
		if statusFilter != 0 && e.Status != statusFilter {
			continue
		}
		events = append(events, e)
	}

	return events, nil
}

// Claim atomically moves up to limit due pending events to in_flight
func (r *Repository) Claim(ctx context.Context, limit int, now time.Time) ([]event.Event, error) {
	ids, err := claimScript.Run(ctx, r.client,
		[]string{dueKey, inflightKey, countsKey},
		now.Unix(), limit,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("claiming events: %w", err)
	}

	events := make([]event.Event, 0, len(ids))
	for _, id := range ids {
		e, err := r.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reading claimed event %s: %w", id, err)
		}
		events = append(events, e)
	}

	return events, nil
}

// RecordOutcome applies a worker's outcome, rejecting reports for events
// no longer in_flight
func (r *Repository) RecordOutcome(ctx context.Context, id string, outcome event.Outcome, now time.Time) error {
	if err := outcome.Validate(); err != nil {
		return fmt.Errorf("validating outcome: %w", err)
	}

	nextRetry := int64(0)
	if outcome.NextRetryAt != nil {
		nextRetry = outcome.NextRetryAt.Unix()
	}
	responseStatus := ""
	if outcome.ResponseStatus != nil {
		responseStatus = strconv.Itoa(*outcome.ResponseStatus)
	}

	applied, err := outcomeScript.Run(ctx, r.client,
		[]string{eventKey(id), dueKey, inflightKey, countsKey},
		id, outcome.Status.String(), nextRetry, responseStatus, outcome.ResponseBody, now.Unix(),
	).Int()
	if err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}

	if applied == 0 {
		r.logger.Warn("outcome rejected, event not in_flight",
			"event_id", id,
			"outcome", outcome.Status.String(),
		)
	}

	return nil
}

// ReleaseStale returns in_flight events older than the threshold to pending
func (r *Repository) ReleaseStale(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	released, err := releaseStaleScript.Run(ctx, r.client,
		[]string{inflightKey, dueKey, countsKey},
		now.Add(-olderThan).Unix(), now.Unix(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("releasing stale events: %w", err)
	}

	return released, nil
}

// CountByStatus returns the number of events per status
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	data, err := r.client.HGetAll(ctx, countsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("reading status counts: %w", err)
	}

	counts := make(map[string]int64, len(data))
	for status, raw := range data {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if n > 0 {
			counts[status] = n
		}
	}

	return counts, nil
}

// QueueDepth returns how many pending events are due at now
func (r *Repository) QueueDepth(ctx context.Context, now time.Time) (int64, error) {
	depth, err := r.client.ZCount(ctx, dueKey, "-inf", strconv.FormatInt(now.Unix(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("counting due events: %w", err)
	}
	return depth, nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (r *Repository) GetClient() *redis.Client {
	return r.client
}

// Helper functions

func eventKey(id string) string {
	return fmt.Sprintf("%s:%s", hashPrefix, id)
}

func vendorIndexKey(vendorID string) string {
	return fmt.Sprintf("%s:%s", vendorKey, vendorID)
}

func parseEvent(data map[string]string) event.Event {
	e := event.Event{
		ID:           data["id"],
		VendorID:     data["vendor_id"],
		EventType:    data["event_type"],
		Payload:      []byte(data["payload"]),
		TargetURL:    data["target_url"],
		Status:       event.NewStatus(data["status"]),
		Attempts:     int(parseInt64(data["attempts"])),
		MaxAttempts:  int(parseInt64(data["max_attempts"])),
		ResponseBody: data["response_body"],
		CreatedAt:    time.Unix(parseInt64(data["created_at"]), 0).UTC(),
		UpdatedAt:    time.Unix(parseInt64(data["updated_at"]), 0).UTC(),
	}

	if ts := parseInt64(data["next_retry_at"]); ts > 0 {
		t := time.Unix(ts, 0).UTC()
		e.NextRetryAt = &t
	}
	if ts := parseInt64(data["last_attempt_at"]); ts > 0 {
		t := time.Unix(ts, 0).UTC()
		e.LastAttemptAt = &t
	}
	if data["response_status"] != "" {
		if code, err := strconv.Atoi(data["response_status"]); err == nil {
			e.ResponseStatus = &code
		}
	}

	return e
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
