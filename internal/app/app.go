// Package app wires the service's dependencies and owns the HTTP server
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/ai"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/config"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/event"
	handler "github.com/IliasHad/shopify-remix-meetup-app/internal/handler/http"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/repository"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/service"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/shopify"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/database"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/health"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/httpclient"
	pkgkafka "github.com/IliasHad/shopify-remix-meetup-app/pkg/kafka"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/tracing"
)

const outboundTimeout = 60 * time.Second

// App wires together all dependencies and runs the description service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	rdb             *redis.Client
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates the application with all dependencies wired.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracingShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  "description-service",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Workflow session store: Redis when configured, in-process otherwise.
	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	var (
		rdb          *redis.Client
		workflowRepo repository.WorkflowRepository
		guard        repository.InFlightGuard
	)
	if cfg.RedisAddr() != "" {
		rdb, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr()))
		workflowRepo = repository.NewRedisWorkflowRepository(rdb, sessionTTL)
		guard = repository.NewRedisInFlightGuard(rdb)
	} else {
		logger.Info("no Redis configured, using in-memory workflow store")
		workflowRepo = repository.NewMemoryWorkflowRepository(sessionTTL)
		guard = repository.NewMemoryInFlightGuard()
	}

	// Kafka producer, optional.
	var producer *pkgkafka.Producer
	var eventProducer *event.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		eventProducer = event.NewProducer(producer, cfg.KafkaTopic, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Outbound clients. Shopify and Anthropic calls are single-attempt so
	// the generator's fallback semantics stay observable.
	outbound := httpclient.New(httpclient.SingleAttemptConfig(outboundTimeout))

	shopifyClient, err := shopify.NewClient(shopify.Config{
		Shop:        cfg.ShopifyShop,
		AccessToken: cfg.ShopifyAccessToken,
		APIVersion:  cfg.ShopifyAPIVersion,
	}, outbound, logger)
	if err != nil {
		return nil, fmt.Errorf("init shopify client: %w", err)
	}

	aiClient, err := ai.NewClient(ai.Config{
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.AnthropicModel,
		MaxTokens: cfg.AnthropicMaxTokens,
	}, outbound, logger)
	if err != nil {
		return nil, fmt.Errorf("init ai client: %w", err)
	}

	// Image fetching is best-effort, so it sits behind a breaker: a broken
	// CDN degrades generation to text-only instead of burning the timeout
	// on every request.
	imageClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("image-fetch"),
		logger,
	)
	imageFetcher := ai.NewImageFetcher(imageClient)

	describer := service.NewDescriber(
		shopifyClient,
		aiClient,
		imageFetcher,
		guard,
		eventProducer,
		cfg.CatalogPageSize,
		logger,
	)
	workflow := service.NewWorkflow(workflowRepo, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	if rdb != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	if producer != nil {
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	router := handler.NewRouter(handler.RouterConfig{
		Environment:    cfg.Environment,
		AppSecret:      cfg.ShopifyAPISecret,
		APIKey:         cfg.ShopifyAPIKey,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	}, describer, workflow, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		rdb:             rdb,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application stopped")
	return nil
}
