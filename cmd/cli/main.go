package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/marcelsud/webhook-courier/config"
	"github.com/marcelsud/webhook-courier/event"
	"github.com/marcelsud/webhook-courier/event/postgres"
	"github.com/marcelsud/webhook-courier/event/redis"
)

/* cli - enqueues a sample event straight through the service layer,
 * bypassing the HTTP API. Handy for smoke-testing a fresh store.
 */

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx := context.Background()

	var repo event.Repository
	switch cfg.StoreBackend {
	case "redis":
		repo, err = redis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	default:
		repo, err = postgres.Connect(ctx, cfg.DatabaseURL, logger)
	}
	if err != nil {
		fmt.Println(err)
		return
	}
	defer repo.Close(ctx)

	s := event.NewService(repo)
	id, err := s.Enqueue(ctx,
		"acme",
		"order.created",
		[]byte(`{"order_id":42,"total_cents":1999}`),
		"https://example.com/webhooks/orders",
		0,
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("enqueued event %s\n", id)

	e, err := s.Get(ctx, id)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("status=%s attempts=%d/%d\n", e.Status, e.Attempts, e.MaxAttempts)
}
