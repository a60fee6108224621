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
	"github.com/marcelsud/webhook-courier/event"
	"github.com/marcelsud/webhook-courier/event/postgres"
	"github.com/marcelsud/webhook-courier/event/redis"
	"github.com/marcelsud/webhook-courier/internal/http/chi"
	"github.com/marcelsud/webhook-courier/vendors"
)

const TIMEOUT = 30 * time.Second

/*
 * As importações devem ser feitas apenas em uma direção: para baixo. O aplicativo (api, worker) importa camadas de negócios,
 * que importam a camada de armazenamento
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
	defer repo.Close(ctx)

	registry := vendors.NewRegistry()
	if err := registry.Load(cfg.VendorsFile); err != nil {
		fmt.Println(err)
		return
	}

	s := event.NewService(repo)
	r := chi.Handlers(ctx, s, registry)
	http.Handle("/", r)
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      http.DefaultServeMux,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
		return
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

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
