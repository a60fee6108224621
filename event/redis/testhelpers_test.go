//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/marcelsud/webhook-courier/event"
	"github.com/marcelsud/webhook-courier/event/redis"
)

/* Test Helpers for Redis Integration Tests
 * Each test gets a fresh container so state never leaks between tests
 */

// SetupRedisContainer creates and starts a Redis testcontainer
func SetupRedisContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	redisContainer, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")

	addr, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "failed to get Redis connection string")

	// Remove redis:// prefix if present
	if len(addr) > 8 && addr[:8] == "redis://" {
		addr = addr[8:]
	}

	cleanup := func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}

	return addr, cleanup
}

// CreateTestRepository creates a repository connected to the test container
func CreateTestRepository(t *testing.T, addr string) *redis.Repository {
	t.Helper()

	repo, err := redis.NewRepository(addr, "", 0, nil)
	require.NoError(t, err, "failed to create Redis repository")

	return repo
}

// EnqueueTestEvent stores a fresh pending event and returns it
func EnqueueTestEvent(t *testing.T, ctx context.Context, repo *redis.Repository, vendorID string, createdAt time.Time) event.Event {
	t.Helper()

	e := event.Event{
		ID:          uuid.New().String(),
		VendorID:    vendorID,
		EventType:   "payment_intent.settled",
		Payload:     []byte(`{"intent_id":"pi_1"}`),
		TargetURL:   "https://vendor.example.com/hooks",
		Status:      event.Pending,
		MaxAttempts: 3,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	_, err := repo.Enqueue(ctx, e)
	require.NoError(t, err, "failed to enqueue test event")

	return e
}
