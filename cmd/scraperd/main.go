package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/suatklnc/alcpn-sub000/internal/api"
	"github.com/suatklnc/alcpn-sub000/internal/cache"
	"github.com/suatklnc/alcpn-sub000/internal/config"
	"github.com/suatklnc/alcpn-sub000/internal/database"
	"github.com/suatklnc/alcpn-sub000/internal/extractor"
	"github.com/suatklnc/alcpn-sub000/internal/fetcher"
	"github.com/suatklnc/alcpn-sub000/internal/pricing"
	"github.com/suatklnc/alcpn-sub000/internal/ratelimit"
	"github.com/suatklnc/alcpn-sub000/internal/scheduler"
	"github.com/suatklnc/alcpn-sub000/internal/scraper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Redis backs the cache and the rate limiter; both degrade gracefully, so
	// an unreachable redis is a warning, not a startup failure.
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, cache and rate limiting degraded", "error", err)
	}

	metrics := scraper.NewMetrics()

	urls := database.NewTrackedURLRepository(db)
	attempts := database.NewAttemptRepository(db)
	priceRepo := database.NewPriceRepository(db)

	gateway := cache.NewGateway(cache.NewRedisBackend(redisClient),
		cfg.Cache.KeyPrefix, cfg.Cache.TTL, logger)
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisBackend(redisClient),
		cfg.RateLimit.Limit, cfg.RateLimit.Window, logger)

	f := fetcher.New(fetcher.Options{
		Timeout:   cfg.Scraper.Timeout,
		UserAgent: cfg.Scraper.UserAgent,
		ProxyURL:  cfg.Scraper.ProxyURL,
	}, logger)

	engine := scraper.NewEngine(f, extractor.New(), metrics, logger)
	prices := pricing.NewService(priceRepo, cfg.Cache.TTL, logger)

	runner := scheduler.NewRunner(urls, attempts, prices, engine, metrics,
		cfg.Scheduler.BatchSize, cfg.Scraper.InterItemWait, logger)

	sched, err := scheduler.NewScheduler(runner, cfg.Scheduler.Cron, logger)
	if err != nil {
		logger.Error("failed to set up scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	handlers := api.NewHandlers(engine, gateway, limiter, runner, urls, attempts, prices, metrics, logger)
	router := api.NewRouter(handlers, healthCheck(db, redisClient))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func healthCheck(db *database.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{"status": "ok"}
		status := http.StatusOK

		if err := db.Ping(r.Context()); err != nil {
			health["status"] = "error"
			health["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			// Degraded, not down: scraping works without redis.
			if status == http.StatusOK {
				health["status"] = "degraded"
			}
			health["redis"] = err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
