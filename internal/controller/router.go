package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cassiomorais/marketsync/internal/account"
	"github.com/cassiomorais/marketsync/internal/infrastructure/config"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/marketsync/internal/middleware"
	"github.com/cassiomorais/marketsync/internal/service/listing"
	"github.com/cassiomorais/marketsync/internal/service/orders"
	"github.com/cassiomorais/marketsync/internal/store"
	"github.com/cassiomorais/marketsync/internal/telemetry"
)

const idempotencyTTL = 24 * time.Hour

type RouterDeps struct {
	Orchestrator      *listing.Orchestrator
	Aggregator        *orders.Aggregator
	Directory         *account.Directory
	Telemetry         *telemetry.Recorder
	Store             store.Store
	HealthChecks      map[string]Pinger
	Metrics           *observability.Metrics
	Gatherer          prometheus.Gatherer
	CORSConfig        config.CORSConfig
	JWTSecret         string
	RequestsPerMinute int
	MaxPublishRetries int
	ServiceName       string
	Logger            zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing(deps.ServiceName))
	r.Use(chimw.RealIP)
	r.Use(customMW.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Idempotency-Replayed"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics))
	}
	r.Use(customMW.SecurityHeaders())

	healthH := NewHealthController(deps.HealthChecks)
	productH := NewProductController(deps.Orchestrator)
	listingH := NewListingController(deps.Orchestrator, deps.MaxPublishRetries)
	orderH := NewOrderController(deps.Aggregator)
	accountH := NewAccountController(deps.Directory)
	telemetryH := NewTelemetryController(deps.Telemetry)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RateLimit(deps.RequestsPerMinute, time.Minute))

		// OAuth redirects arrive from the browser without a bearer token.
		r.Get("/oauth/{platform}/callback", accountH.Callback)

		r.Group(func(r chi.Router) {
			if deps.JWTSecret != "" {
				r.Use(customMW.RequireAuth(deps.JWTSecret))
			}
			idempotencyMW := customMW.Idempotency(deps.Store, idempotencyTTL, deps.Logger)

			// Products
			r.With(idempotencyMW).Post("/products", productH.Create)
			r.Get("/products", productH.List)
			r.Get("/products/{id}", productH.Get)
			r.Put("/products/{id}", productH.Update)
			r.Delete("/products/{id}", productH.Delete)
			r.With(idempotencyMW).Post("/products/{id}/publish", productH.Publish)

			// Listings and publish jobs
			r.Get("/listings", listingH.List)
			r.Post("/listings/sync", listingH.Sync)
			r.Delete("/listings/{id}", listingH.Delete)
			r.Get("/jobs", listingH.Jobs)
			r.Get("/jobs/{id}", listingH.Job)
			r.Post("/jobs/retry", listingH.Retry)

			// Orders
			r.Get("/orders", orderH.List)
			r.Post("/orders/sync", orderH.Sync)
			r.Put("/orders/{id}/status", orderH.UpdateStatus)
			r.Get("/earnings", orderH.Earnings)

			// Accounts
			r.Get("/accounts", accountH.List)
			r.Delete("/accounts/{platform}", accountH.Disconnect)

			r.Get("/telemetry", telemetryH.Get)
		})
	})

	return r
}
