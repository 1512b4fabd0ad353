package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-insights/docs"
	"shop-insights/internal/application"
	"shop-insights/internal/config"
	"shop-insights/internal/domain"
	"shop-insights/internal/infrastructure/api"
	"shop-insights/internal/infrastructure/lock"
	"shop-insights/internal/infrastructure/metrics"
	"shop-insights/internal/infrastructure/pubsub"
	"shop-insights/internal/infrastructure/repository"
	"shop-insights/internal/infrastructure/scheduler"
	shopifyinfra "shop-insights/internal/infrastructure/shopify"
	"shop-insights/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, warnings, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger = logger.Level(cfg.LogLevel)
	for _, w := range warnings {
		logger.Warn().Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Relational store
	db, err := repository.OpenPostgres(repository.DatabaseConfig{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer repository.Close(db)

	if err := repository.Migrate(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}
	store := repository.NewGormStore(db)

	// Ingestion lock: redis when configured so replicas agree, in-process otherwise
	var ingestLock ports.IngestionLock = lock.NewMemoryLock()
	if cfg.RedisURL != "" {
		redisClient, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		ingestLock = lock.NewRedisLock(redisClient, cfg.LockTTL, logger)
		logger.Info().Dur("ttl", cfg.LockTTL).Msg("Using Redis ingestion lock")
	} else {
		logger.Warn().Msg("REDIS_URL not set, ingestion lock is local to this process")
	}

	// Run log: MongoDB when configured, in-memory otherwise
	runLog := repository.NewMemoryRunLog()
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer mongoClient.Disconnect(context.Background())

		mongoRunLog := repository.NewMongoRunLog(mongoClient.Database(cfg.MongoDatabase))
		if err := mongoRunLog.EnsureIndexes(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create run log indexes")
		}
		runLog = mongoRunLog
	}

	collectors := metrics.NewCollectors()
	runEvents := pubsub.NewRunPubSub(logger)

	// Storefront client with rate limiting and retry
	retryConfig := shopifyinfra.DefaultRetryConfig()
	retryConfig.MaxRetries = cfg.ShopifyMaxRetries
	storefront := shopifyinfra.NewClientWithOptions(
		shopifyinfra.Config{
			APIVersion:     cfg.ShopifyAPIVersion,
			PageSize:       cfg.ShopifyPageSize,
			RequestTimeout: cfg.ShopifyRequestTimeout,
		},
		shopifyinfra.NewRateLimiterWithRate(cfg.ShopifyRateLimitRPS, shopifyinfra.DefaultBurst, logger),
		retryConfig,
		collectors,
		logger,
	)

	// Application services
	checker := application.NewCredentialsService(storefront, logger)
	tenantService := application.NewTenantService(store, checker, logger)
	insightsService := application.NewInsightsService(store)
	ingestionService := application.NewIngestionService(
		storefront,
		store,
		checker,
		ingestLock,
		application.IngestionObservers{
			RunLog:    runLog,
			Publisher: runEvents,
			Metrics:   collectors,
		},
		application.IngestionOptions{
			Timeout:         cfg.IngestionTimeout,
			SkipUnreachable: cfg.IngestSkipUnreachable,
		},
		logger,
	)

	syncScheduler := scheduler.New(store, ingestionService, scheduler.Config{
		Interval:             cfg.SyncInterval,
		MaxConcurrentTenants: cfg.SyncMaxConcurrentTenants,
	}, logger)
	syncScheduler.Start(ctx)

	router := api.NewRouter(api.Dependencies{
		Tenants:         tenantService,
		Ingestion:       ingestionService,
		Insights:        insightsService,
		Runs:            runEvents,
		Metrics:         collectors.Handler(),
		SwaggerDoc:      docs.SwaggerJSON,
		DefaultTenantID: domain.TenantID(cfg.DefaultTenantID),
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	}, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// requests end with the process so event streams do not hold up Shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := syncScheduler.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Scheduler did not stop in time")
	}
}
