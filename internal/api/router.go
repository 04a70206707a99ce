package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/portfolio-valuation/internal/api/handlers"
	custommiddleware "github.com/ndewijer/portfolio-valuation/internal/api/middleware"
	"github.com/ndewijer/portfolio-valuation/internal/config"
	"github.com/ndewijer/portfolio-valuation/internal/metrics"
	"github.com/ndewijer/portfolio-valuation/internal/service"
)

// Services bundles the services the router exposes.
type Services struct {
	System    *service.SystemService
	Portfolio *service.PortfolioService
	Ledger    *service.LedgerService
	Valuation *service.ValuationService
	History   *service.HistoryService
	Rebalance *service.RebalanceService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config, reg *metrics.Registry) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	r.Handle("/metrics", reg.Handler())

	systemHandler := handlers.NewSystemHandler(svc.System)
	portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio)
	ledgerHandler := handlers.NewLedgerHandler(svc.Ledger)
	valuationHandler := handlers.NewValuationHandler(svc.Valuation)
	historyHandler := handlers.NewHistoryHandler(svc.History)
	rebalanceHandler := handlers.NewRebalanceHandler(svc.Rebalance)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Get("/benchmark", historyHandler.Benchmarks)
		r.Post("/valuation/indexed", valuationHandler.ValuateIndexed)

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", portfolioHandler.Portfolios)
			r.Post("/", portfolioHandler.CreatePortfolio)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", portfolioHandler.Portfolio)
				r.Delete("/", portfolioHandler.DeletePortfolio)

				r.Get("/holding", portfolioHandler.Holdings)
				r.Put("/holding/{holdingId}/regime", ledgerHandler.UpdateHolding)

				r.Get("/trade", ledgerHandler.Trades)
				r.Post("/trade", ledgerHandler.CreateTrade)

				r.Post("/valuation/revalue", valuationHandler.Revalue)
				r.Get("/valuation/anomalies", valuationHandler.Anomalies)

				r.Get("/history", historyHandler.History)

				r.Route("/rebalance", func(r chi.Router) {
					r.Get("/config", rebalanceHandler.Config)
					r.Put("/config", rebalanceHandler.SaveConfig)
					r.Get("/status", rebalanceHandler.Status)
					r.Post("/event", rebalanceHandler.RecordEvent)
					r.Get("/history", rebalanceHandler.History)
				})
			})
		})
	})

	return r
}
