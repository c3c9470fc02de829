package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"chompin/internal/attendance"
	"chompin/internal/config"
	"chompin/internal/gradebook"
	"chompin/internal/logging"
	"chompin/internal/queue"
	"chompin/internal/store"
)

// Worker consumes check-in notifications and forwards the student's updated
// attendance grade to the gradebook sink.
func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel).With("component", "worker")
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg config.App, logger *slog.Logger) error {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	db, err := store.NewDB(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	repo := attendance.NewRepository(db.Client)
	analytics := attendance.NewAnalytics(repo, attendance.SystemClock, cfg.LateWeight, cfg.Location())
	publisher := gradebook.NewPublisher(analytics, gradebook.LogSink{Logger: logger}, logger)

	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}

	logger.Info("worker started, waiting for messages", "concurrency", cfg.WorkerConcurrency, "queue", cfg.QueueKey)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		g.Go(func() error { return publisher.Run(gctx, messages) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
