package api

import (
	"net/http"
	"time"

	"shop-insights/internal/application"
	"shop-insights/internal/domain"
	"shop-insights/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Dependencies are the services the HTTP surface delegates to
type Dependencies struct {
	Tenants   *application.TenantService
	Ingestion *application.IngestionService
	Insights  *application.InsightsService
	Runs      *pubsub.RunPubSub
	// Metrics serves the prometheus exposition; nil disables /metrics
	Metrics http.Handler
	// SwaggerDoc is the OpenAPI document served at /swagger/doc.json
	SwaggerDoc []byte

	DefaultTenantID   domain.TenantID
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
}

// NewRouter builds the dashboard API
func NewRouter(deps Dependencies, logger zerolog.Logger) http.Handler {
	h := &handlers{
		tenants:   deps.Tenants,
		ingestion: deps.Ingestion,
		insights:  deps.Insights,
		runs:      deps.Runs,
		heartbeat: deps.HeartbeatInterval,
		logger:    logger,
	}
	if h.heartbeat <= 0 {
		h.heartbeat = defaultHeartbeat
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", TenantHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(deps.SwaggerDoc)
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api", func(r chi.Router) {
		r.Use(tenantMiddleware(deps.DefaultTenantID))

		r.Route("/tenants", func(r chi.Router) {
			r.Get("/me", h.me)
			r.With(middleware.AllowContentType("application/json")).Post("/shopify", h.connect)
			r.Delete("/shopify", h.disconnect)
			r.Get("/shopify/check", h.checkStored)
			r.With(middleware.AllowContentType("application/json")).Post("/shopify/check", h.checkTyped)
		})

		r.Route("/ingest", func(r chi.Router) {
			r.Post("/run", h.ingestRun)
			r.Get("/runs", h.ingestRuns)
			r.Get("/events", h.ingestEvents)
		})

		r.Route("/insights", func(r chi.Router) {
			r.Get("/summary", h.summary)
			r.Get("/orders-by-date", h.ordersByDate)
			r.Get("/top-customers", h.topCustomers)
		})
	})

	return r
}
