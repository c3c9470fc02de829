package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chompin/internal/attendance"
	"chompin/internal/config"
	"chompin/internal/httpapi"
	"chompin/internal/httpmiddleware"
	"chompin/internal/logging"
	"chompin/internal/metrics"
	"chompin/internal/qr"
	"chompin/internal/queue"
	"chompin/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, logger *slog.Logger) error {
	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := store.NewDB(startCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(startCtx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// Nothing drains this queue outside the worker process; dev only.
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	codec, err := qr.New(cfg.QRBaseURL, cfg.QRSigningKey, cfg.JWTIssuer, cfg.QRRequireSigned,
		qr.WithClock(attendance.SystemClock.Now))
	if err != nil {
		return err
	}

	repo := attendance.NewRepository(db.Client)
	svc := attendance.NewService(repo, attendance.Options{
		Codec:      codec,
		SessionTTL: cfg.SessionTTL,
		LateAfter:  cfg.LateAfter,
		Location:   cfg.Location(),
		Logger:     logger,
	})
	analytics := attendance.NewAnalytics(repo, attendance.SystemClock, cfg.LateWeight, cfg.Location())

	r := httpapi.NewRouter(httpapi.Deps{
		Service:        svc,
		Analytics:      analytics,
		Queue:          q,
		Metrics:        metrics.New(prometheus.DefaultRegisterer),
		MetricsHandler: promhttp.Handler(),
		Limiter:        limiter,
		Logger:         logger,
		JWTSigningKey:  cfg.JWTSigningKey,
		JWTIssuer:      cfg.JWTIssuer,
		CORSOrigins:    cfg.CORSOrigins,
		Health: map[string]httpapi.HealthCheck{
			"db":    db.Healthy,
			"redis": redisClient.Healthy,
		},
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", "error", err)
	}

	logger.Info("server exited")
	return nil
}
