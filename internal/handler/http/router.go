package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	shopifymw "github.com/IliasHad/shopify-remix-meetup-app/internal/middleware"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/service"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/health"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/middleware"
)

// RouterConfig carries the auth and rate-limit settings the router needs.
type RouterConfig struct {
	Environment    string
	AppSecret      string
	APIKey         string
	ShopValidator  shopifymw.ShopValidator
	RateLimitRPS   int
	RateLimitBurst int
	PprofCIDRs     []string
}

// NewRouter wires the middleware chain and all routes.
func NewRouter(
	cfg RouterConfig,
	describer *service.Describer,
	workflow *service.Workflow,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.Environment = cfg.Environment

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("description-service"))
	r.Use(middleware.PrometheusMetrics("description-service"))

	// Health and metrics
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Debug endpoints, allowlisted by CIDR
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	// Webhooks authenticate by HMAC digest, not session token
	webhookHandler := NewWebhookHandler(workflow, logger)
	r.Route("/webhooks", func(r chi.Router) {
		r.Use(shopifymw.WebhookAuth(cfg.AppSecret, logger))
		r.Post("/", webhookHandler.Receive)
	})

	// Embedded admin API, session-token authenticated and shop-scoped
	describeHandler := NewDescribeHandler(describer, workflow, logger)
	productHandler := NewProductHandler(describer, logger)
	workflowHandler := NewWorkflowHandler(workflow, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(shopifymw.SessionTokenAuth(cfg.AppSecret, cfg.APIKey, cfg.ShopValidator, logger))
		r.Use(middleware.RequestLogger(logger))
		r.Use(middleware.ShopRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

		r.Post("/describe", describeHandler.Describe)
		r.Get("/products", productHandler.ListProducts)

		r.Route("/workflow", func(r chi.Router) {
			r.Get("/", workflowHandler.Current)
			r.Post("/select", workflowHandler.Select)
			r.Post("/generate-confirmed", workflowHandler.ConfirmGeneration)
			r.Post("/reviewed", workflowHandler.Reviewed)
			r.Post("/regenerate", workflowHandler.Regenerate)
			r.Post("/publish-started", workflowHandler.StartPublish)
			r.Post("/published", workflowHandler.Published)
			r.Post("/reset", workflowHandler.Reset)
		})
	})

	return r
}
