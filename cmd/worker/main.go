package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-courier/config"
	"github.com/marcelsud/webhook-courier/delivery"
	"github.com/marcelsud/webhook-courier/event"
	"github.com/marcelsud/webhook-courier/event/postgres"
	"github.com/marcelsud/webhook-courier/event/redis"
	"github.com/marcelsud/webhook-courier/metrics"
	"github.com/marcelsud/webhook-courier/retry"
	"github.com/marcelsud/webhook-courier/vendors"
)

/* worker - the delivery side of the engine
 *
 * Polls the store for due pending events, claims them and attempts
 * delivery with exponential backoff. Safe to run multiple instances
 * against the same store. Exposes Prometheus metrics on METRICS_PORT.
 */

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer repo.Close(context.Background())

	registry := vendors.NewRegistry()
	if err := registry.Load(cfg.VendorsFile); err != nil {
		fmt.Println(err)
		return
	}

	collector := metrics.NewStoreCollector(repo)
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer exporter.Shutdown(context.Background())

	metricsSrv := &http.Server{
		Addr:         ":" + cfg.MetricsPort,
		Handler:      exporter.ServeHTTP(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	sender := delivery.NewSender(registry, cfg.RequestTimeout)
	policy := retry.NewPolicy(cfg.RetryBase, cfg.RetryCap)
	dispatcher := delivery.NewDispatcher(repo, sender, policy, logger, delivery.Options{
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		WorkerCount:  cfg.WorkerCount,
		StaleAfter:   cfg.StaleAfter,
	})

	// Blocks until the signal context is cancelled and workers drain
	if err := dispatcher.Run(ctx); err != nil {
		fmt.Println(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}
}

func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (event.Repository, error) {
	switch cfg.StoreBackend {
	case "redis":
		return redis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	default:
		return postgres.Connect(ctx, cfg.DatabaseURL, logger)
	}
}
