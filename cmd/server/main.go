package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkpulse/internal/config"
	"linkpulse/internal/database"
	"linkpulse/internal/enrich"
	handlers "linkpulse/internal/handler/http"
	"linkpulse/internal/ratelimit"
	"linkpulse/internal/repository/postgres"
	redisrepo "linkpulse/internal/repository/redis"
	"linkpulse/internal/service"
	"linkpulse/internal/shortener"
	"linkpulse/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logg := logger.New(cfg.App.LogLevel)
	logg.Info("starting linkpulse",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage.
	pool, err := postgres.InitDB(
		ctx,
		cfg.Database.DatabaseDSN(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MinIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(pool); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		logg.Info("migrations applied")
	}

	redisClient, err := redisrepo.InitRedis(cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories.
	linkRepo := postgres.NewLinkRepository(pool)
	clickRepo := postgres.NewClickRepository(pool)
	metricRepo := postgres.NewMetricRepository(pool)
	cache := redisrepo.NewCache(redisClient, cfg.Cache.SlidingWindow, cfg.Cache.NegativeTTL)

	// Enrichment. Without a GeoIP database the recorder still runs, it just
	// marks every click's country as Unknown.
	var geo enrich.GeoResolver = enrich.NoopResolver{}
	if cfg.Enrichment.GeoDBPath != "" {
		resolver, err := enrich.NewMaxMindResolver(cfg.Enrichment.GeoDBPath)
		if err != nil {
			logg.Warn("geoip database unavailable, clicks will not be geolocated",
				"path", cfg.Enrichment.GeoDBPath,
				"error", err,
			)
		} else {
			defer resolver.Close()
			geo = resolver
		}
	}

	// Services.
	generator := shortener.NewGenerator(linkRepo, cfg.App.CodeLength)
	linkService := service.NewLinkService(linkRepo, cache, generator, logg.WithComponent("links").Logger)
	clickService := service.NewClickService(clickRepo, enrich.NewParser(), geo, cfg.Enrichment.GeoTimeout, logg.WithComponent("clicks").Logger)
	analyticsService := service.NewAnalyticsService(linkRepo, clickRepo, metricRepo, logg.WithComponent("analytics").Logger)

	aggregator := service.NewAggregator(
		linkRepo,
		clickRepo,
		metricRepo,
		cfg.Aggregation.Interval,
		cfg.Aggregation.LookbackDays,
		cfg.Aggregation.RetryBackoff,
		logg.WithComponent("aggregator").Logger,
	)
	go aggregator.Run(ctx)

	// HTTP.
	handler := handlers.NewHandler(linkService, clickService, analyticsService, logg.Logger, cfg.Server.BaseURL)

	mux := http.NewServeMux()
	if cfg.App.RateLimitEnabled {
		limiter := ratelimit.New(redisClient, cfg.App.RateLimitPerMinute, time.Minute)
		handler.Routes(mux, handlers.RateLimitMiddleware(limiter))
	} else {
		handler.Routes(mux)
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	chain := handlers.Chain(
		handlers.RecoveryMiddleware(logg.Logger),
		handlers.RequestIDMiddleware,
		handlers.LoggingMiddleware(logg.Logger),
		handlers.MetricsMiddleware,
		handlers.CORSMiddleware,
	)
	root := chain(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logg.Info("server stopped")
	return nil
}
