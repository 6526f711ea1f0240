package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fluxpay/pspcore/internal/adapter/http/handler"
	"github.com/fluxpay/pspcore/internal/adapter/http/middleware"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler    *handler.AccountHandler
	BatchHandler      *handler.BatchHandler
	LedgerHandler     *handler.LedgerHandler
	SettlementHandler *handler.SettlementHandler
	LiabilityHandler  *handler.LiabilityHandler
	EventHandler      *handler.EventHandler
	HealthHandler     *handler.HealthHandler
	IdempotencyStore  usecase.IdempotencyStore
	Logger            zerolog.Logger
	RateLimitRPS      float64
	RateLimitBurst    int
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)

	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/healthz", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Get("/{id}/balance", cfg.AccountHandler.Balance)
			r.Get("/{id}/entries", cfg.LedgerHandler.ListEntries)
		})

		// Payroll batches
		r.Route("/batches", func(r chi.Router) {
			r.Post("/commit", cfg.BatchHandler.Commit)
			r.Post("/{ref}/execute", cfg.BatchHandler.Execute)
			r.Post("/{ref}/release", cfg.BatchHandler.Release)
			r.Get("/{ref}/instructions", cfg.BatchHandler.ListInstructions)
		})

		// Payment instructions
		r.Get("/instructions/{id}", cfg.BatchHandler.GetInstruction)

		// Direct ledger operations
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", cfg.LedgerHandler.PostEntries)
			r.Post("/{id}/reverse", cfg.LedgerHandler.Reverse)
		})
		r.Get("/ledger/consistency", cfg.LedgerHandler.Consistency)

		// Settlement feeds and provider callbacks
		r.Route("/settlements", func(r chi.Router) {
			r.Post("/ingest", cfg.SettlementHandler.Ingest)
			r.Get("/unmatched", cfg.SettlementHandler.ListUnmatched)
		})
		r.Post("/providers/{name}/callback", cfg.SettlementHandler.Callback)

		// Liabilities
		r.Route("/liabilities", func(r chi.Router) {
			r.Get("/", cfg.LiabilityHandler.List)
			r.Get("/{id}", cfg.LiabilityHandler.Get)
			r.Post("/{id}/recovery", cfg.LiabilityHandler.AdvanceRecovery)
		})

		// Event log
		r.Get("/events", cfg.EventHandler.List)
	})

	return r
}
