package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/freshkeep/backend/config"
	httpDelivery "github.com/freshkeep/backend/internal/delivery/http"
	"github.com/freshkeep/backend/internal/domain"
	"github.com/freshkeep/backend/internal/infrastructure/cache"
	"github.com/freshkeep/backend/internal/infrastructure/logging"
	"github.com/freshkeep/backend/internal/infrastructure/recipesource"
	"github.com/freshkeep/backend/internal/usecase"
)

const (
	version             = "1.0.0"
	cacheCleanupEvery   = 10 * time.Minute
	shutdownTimeout     = 15 * time.Second
	readHeaderTimeout   = 5 * time.Second
	redisConnectTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting FreshKeep backend",
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache", cfg.Cache.Type),
		zap.Duration("cache_ttl", cfg.Cache.TTL))

	store, err := newCache(cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Stays a nil interface when no key is configured
	var source domain.RecipeSource
	if cfg.RecipeSource.APIKey != "" {
		client := recipesource.NewClient(recipesource.ClientConfig{
			APIKey:          cfg.RecipeSource.APIKey,
			BaseURL:         cfg.RecipeSource.BaseURL,
			Timeout:         cfg.RecipeSource.Timeout,
			RequestsPerHour: cfg.RecipeSource.RequestsPerHour,
			Burst:           cfg.RecipeSource.Burst,
			PageSize:        cfg.RecipeSource.PageSize,
			Debug:           cfg.RecipeSource.Debug || cfg.Server.Environment == "development",
		}, logger)
		source = client
		logger.Info("recipe source configured",
			zap.String("base_url", cfg.RecipeSource.BaseURL),
			zap.Int("requests_per_hour", cfg.RecipeSource.RequestsPerHour))
	} else {
		logger.Warn("recipe source API key not set, suggestions are disabled")
	}

	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		MaxMissingIngredients: &cfg.Matching.MaxMissingIngredients,
		Logger:                logger,
		EnableDebugLogging:    cfg.Matching.DebugLogging,
	})

	suggestions := usecase.NewSuggestionService(store, source, matcher, usecase.SuggestionServiceConfig{
		CacheTTL:              cfg.Cache.TTL,
		ExpiringThresholdDays: cfg.Matching.ExpiringThresholdDays,
		ResultLimit:           cfg.Matching.ResultLimit,
		MaxSearchTerms:        cfg.Matching.MaxSearchTerms,
		MaxConcurrency:        cfg.RecipeSource.MaxConcurrency,
		EnableDebugLogging:    cfg.Matching.DebugLogging,
	}, logger)

	logger.Info("matching configured",
		zap.Int("expiring_threshold_days", cfg.Matching.ExpiringThresholdDays),
		zap.Int("max_missing_ingredients", cfg.Matching.MaxMissingIngredients),
		zap.Int("result_limit", cfg.Matching.ResultLimit))

	handler := httpDelivery.NewHandler(matcher, suggestions, httpDelivery.HandlerConfig{
		ExpiringThresholdDays: cfg.Matching.ExpiringThresholdDays,
		ResultLimit:           cfg.Matching.ResultLimit,
	}, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           httpDelivery.SetupRouter(cfg, handler, logger),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// appCache is a cache backend that owns resources
type appCache interface {
	domain.CacheRepository
	io.Closer
}

func newCache(cfg config.CacheConfig, logger *zap.Logger) (appCache, error) {
	if cfg.Type != "redis" {
		return cache.NewMemoryCache(cacheCleanupEvery), nil
	}

	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("create redis cache: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	if err := redisCache.Ping(ctx); err != nil {
		redisCache.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("redis cache connected")
	return redisCache, nil
}
