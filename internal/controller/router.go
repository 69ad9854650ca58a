package controller

import (
	"time"

	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/internal/infrastructure/config"
	"github.com/fusionbox/dinero/internal/infrastructure/observability"
	customMW "github.com/fusionbox/dinero/internal/middleware"
	"github.com/fusionbox/dinero/internal/resource"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Registry     *gateway.Registry
	Transactions *resource.Transactions
	Customers    *resource.Customers
	Cards        *resource.CreditCards
	// Redis and Idempotency are nil when redis is disabled.
	Redis       Pinger
	Idempotency customMW.IdempotencyStore
	Metrics     *observability.Metrics
	// Gatherer serves /metrics; nil means the default registry.
	Gatherer   prometheus.Gatherer
	Logger     zerolog.Logger
	CORSConfig config.CORSConfig
	AuthConfig config.AuthConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Idempotency-Replayed"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics))
	}

	healthH := NewHealthController(deps.Redis)
	gatewayH := NewGatewayController(deps.Registry)
	txnH := NewTransactionController(deps.Registry, deps.Transactions)
	customerH := NewCustomerController(deps.Registry, deps.Customers, deps.Cards)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		if deps.AuthConfig.Enabled {
			r.Use(customMW.RequireAuth(deps.AuthConfig.JWTSecret))
		}
		if deps.AuthConfig.RateLimit > 0 {
			r.Use(customMW.RateLimit(deps.AuthConfig.RateLimit))
		}
		// Idempotency middleware for mutating endpoints.
		if deps.Idempotency != nil {
			r.Use(customMW.Idempotency(deps.Idempotency, deps.Metrics, deps.Logger))
		}

		r.Get("/gateways", gatewayH.List)

		// Transactions
		r.Post("/transactions", txnH.Create)
		r.Get("/transactions/{id}", txnH.Get)
		r.Post("/transactions/{id}/refund", txnH.Refund)
		r.Post("/transactions/{id}/void", txnH.Void)
		r.Post("/transactions/{id}/settle", txnH.Settle)

		// Customers
		r.Post("/customers", customerH.Create)
		r.Get("/customers/{id}", customerH.Get)
		r.Put("/customers/{id}", customerH.Update)
		r.Delete("/customers/{id}", customerH.Delete)
		r.Post("/customers/{id}/charge", customerH.Charge)

		// Cards
		r.Post("/customers/{id}/cards", customerH.AddCard)
		r.Put("/customers/{id}/cards/{card_id}", customerH.UpdateCard)
		r.Delete("/customers/{id}/cards/{card_id}", customerH.DeleteCard)
		r.Post("/customers/{id}/cards/{card_id}/charge", customerH.ChargeCard)
		r.Post("/customers/{id}/cards/{card_id}/replace", customerH.ReplaceCard)
	})

	return r
}
