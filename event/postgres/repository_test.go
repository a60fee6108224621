package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelsud/webhook-courier/event"
)

var eventCols = []string{
	"id", "vendor_id", "event_type", "payload", "target_url", "status",
	"attempts", "max_attempts", "next_retry_at", "last_attempt_at",
	"response_status", "response_body", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *Repository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, NewRepository(mock, nil)
}

func TestEnqueue(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now().UTC()

	e := event.Event{
		ID:          uuid.New().String(),
		VendorID:    "v_acme",
		EventType:   "payment_intent.settled",
		Payload:     []byte(`{"intent_id":"pi_1"}`),
		TargetURL:   "https://vendor.example.com/hooks",
		Status:      event.Pending,
		MaxAttempts: 3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// created_at comes from the caller, updated_at is stamped by the store
	mock.ExpectExec(`INSERT INTO webhook_events`).
		WithArgs(e.ID, e.VendorID, e.EventType, e.Payload, e.TargetURL,
			"pending", 0, 3, now, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := repo.Enqueue(context.Background(), e)

	require.NoError(t, err)
	assert.Equal(t, e.ID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		now := time.Now().UTC()
		id := uuid.New().String()

		mock.ExpectQuery(`SELECT (.+) FROM webhook_events WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(eventCols).AddRow(
				id, "v_acme", "subscription.renewed", []byte(`{}`),
				"https://vendor.example.com/hooks", "pending",
				0, 3, nil, nil, nil, "", now, now,
			))

		e, err := repo.Get(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, id, e.ID)
		assert.Equal(t, event.Pending, e.Status)
		assert.Nil(t, e.NextRetryAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`SELECT (.+) FROM webhook_events WHERE id = \$1`).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.Get(context.Background(), "missing")

		assert.ErrorIs(t, err, event.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListByVendor(t *testing.T) {
	t.Run("without status filter", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		now := time.Now().UTC()

		mock.ExpectQuery(`SELECT (.+) FROM webhook_events WHERE vendor_id = \$1 ORDER BY created_at DESC LIMIT \$2`).
			WithArgs("v_acme", 50).
			WillReturnRows(pgxmock.NewRows(eventCols).AddRow(
				uuid.New().String(), "v_acme", "payment_intent.settled", []byte(`{}`),
				"https://vendor.example.com/hooks", "delivered",
				1, 3, nil, &now, intPtr(200), "ok", now, now,
			))

		events, err := repo.ListByVendor(context.Background(), "v_acme", 0, 50)

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event.Delivered, events[0].Status)
		assert.Equal(t, 200, *events[0].ResponseStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("with status filter", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`AND status = \$2 ORDER BY created_at DESC LIMIT \$3`).
			WithArgs("v_acme", "expired", 50).
			WillReturnRows(pgxmock.NewRows(eventCols))

		events, err := repo.ListByVendor(context.Background(), "v_acme", event.Expired, 50)

		require.NoError(t, err)
		assert.Empty(t, events)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaim(t *testing.T) {
	t.Run("returns claimed events as in_flight", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		now := time.Now().UTC()
		id := uuid.New().String()

		mock.ExpectQuery(`WITH due AS`).
			WithArgs(10, now).
			WillReturnRows(pgxmock.NewRows(eventCols).AddRow(
				id, "v_acme", "payment_intent.created", []byte(`{}`),
				"https://vendor.example.com/hooks", "in_flight",
				0, 3, nil, &now, nil, "", now, now,
			))

		events, err := repo.Claim(context.Background(), 10, now)

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event.InFlight, events[0].Status)
		assert.Equal(t, now, *events[0].LastAttemptAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch when nothing is due", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		now := time.Now().UTC()

		mock.ExpectQuery(`WITH due AS`).
			WithArgs(10, now).
			WillReturnRows(pgxmock.NewRows(eventCols))

		events, err := repo.Claim(context.Background(), 10, now)

		require.NoError(t, err)
		assert.Empty(t, events)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("store error surfaces to the caller", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		now := time.Now().UTC()

		mock.ExpectQuery(`WITH due AS`).
			WithArgs(10, now).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.Claim(context.Background(), 10, now)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "claiming events")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordOutcome(t *testing.T) {
	now := time.Now().UTC()

	t.Run("delivered outcome updates the in_flight row", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		id := uuid.New().String()

		mock.ExpectExec(`UPDATE webhook_events`).
			WithArgs(id, "delivered", (*time.Time)(nil), intPtr(200), "ok", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.RecordOutcome(context.Background(), id, event.Outcome{
			Status:         event.Delivered,
			ResponseStatus: intPtr(200),
			ResponseBody:   "ok",
		}, now)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retry outcome schedules next attempt", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		id := uuid.New().String()
		retryAt := now.Add(30 * time.Second)

		mock.ExpectExec(`UPDATE webhook_events`).
			WithArgs(id, "pending", &retryAt, intPtr(500), "oops", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.RecordOutcome(context.Background(), id, event.Outcome{
			Status:         event.Pending,
			NextRetryAt:    &retryAt,
			ResponseStatus: intPtr(500),
			ResponseBody:   "oops",
		}, now)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale report is a silent no-op", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		id := uuid.New().String()

		// Zero rows affected: the event was reclaimed or already resolved
		mock.ExpectExec(`UPDATE webhook_events`).
			WithArgs(id, "delivered", (*time.Time)(nil), intPtr(200), "ok", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.RecordOutcome(context.Background(), id, event.Outcome{
			Status:         event.Delivered,
			ResponseStatus: intPtr(200),
			ResponseBody:   "ok",
		}, now)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid outcome rejected before touching the store", func(t *testing.T) {
		_, repo := newMockRepo(t)

		err := repo.RecordOutcome(context.Background(), "id", event.Outcome{
			Status: event.Pending, // retry without next_retry_at
		}, now)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validating outcome")
	})
}

func TestReleaseStale(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now().UTC()
	olderThan := 20 * time.Second

	mock.ExpectExec(`UPDATE webhook_events`).
		WithArgs(now.Add(-olderThan), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	released, err := repo.ReleaseStale(context.Background(), olderThan, now)

	require.NoError(t, err)
	assert.Equal(t, 2, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM webhook_events GROUP BY status`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("pending", int64(4)).
			AddRow("delivered", int64(10)))

	counts, err := repo.CountByStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), counts["pending"])
	assert.Equal(t, int64(10), counts["delivered"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueDepth(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	depth, err := repo.QueueDepth(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, int64(7), depth)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func intPtr(i int) *int {
	return &i
}
