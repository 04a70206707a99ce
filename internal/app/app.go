// Package app wires configuration, storage, upstream providers and services
// into the object graph shared by the HTTP server and the command line tool.
package app

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-valuation/internal/api"
	"github.com/ndewijer/portfolio-valuation/internal/bcb"
	"github.com/ndewijer/portfolio-valuation/internal/config"
	"github.com/ndewijer/portfolio-valuation/internal/database"
	"github.com/ndewijer/portfolio-valuation/internal/indexation"
	"github.com/ndewijer/portfolio-valuation/internal/metrics"
	"github.com/ndewijer/portfolio-valuation/internal/repository"
	"github.com/ndewijer/portfolio-valuation/internal/retry"
	"github.com/ndewijer/portfolio-valuation/internal/scheduler"
	"github.com/ndewijer/portfolio-valuation/internal/service"
	"github.com/ndewijer/portfolio-valuation/internal/upstream"
	"github.com/ndewijer/portfolio-valuation/internal/yahoo"
)

// App is the fully wired application.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Metrics  *metrics.Registry
	Services api.Services
}

// New opens and migrates the database, builds the upstream clients and
// creates every service.
func New(cfg *config.Config) (*App, error) {
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Str("path", cfg.Database.Path).Msg("connected to database")

	benchmarks, err := config.LoadBenchmarks(cfg.Benchmarks.Path)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load benchmarks: %w", err)
	}

	reg := metrics.NewRegistry()
	rates := bcb.NewClient(newUpstream("bcb", cfg.Fetch, reg), cfg.Upstream, cfg.Fetch.RateCacheTTL)
	quotes := yahoo.NewFinanceClient(newUpstream("yahoo", cfg.Fetch, reg), cfg.Upstream, cfg.Fetch)

	portfolioRepo := repository.NewPortfolioRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	rebalanceRepo := repository.NewRebalanceRepository(db)
	anomalyRepo := repository.NewAnomalyRepository(db)

	return &App{
		Config:  cfg,
		DB:      db,
		Metrics: reg,
		Services: api.Services{
			System:    service.NewSystemService(db),
			Portfolio: service.NewPortfolioService(portfolioRepo, holdingRepo),
			Ledger:    service.NewLedgerService(db, portfolioRepo, holdingRepo, tradeRepo),
			Valuation: service.NewValuationService(
				portfolioRepo,
				holdingRepo,
				tradeRepo,
				anomalyRepo,
				indexation.NewEngine(cfg.Valuation),
				quotes,
				rates,
				reg,
			),
			History: service.NewHistoryService(
				portfolioRepo,
				tradeRepo,
				quotes,
				rates,
				benchmarks,
				cfg.Fetch,
				reg,
			),
			Rebalance: service.NewRebalanceService(portfolioRepo, holdingRepo, rebalanceRepo),
		},
	}, nil
}

// Scheduler builds the periodic revaluation job from the scheduler settings.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(a.Config.Scheduler.Spec, a.Services.Portfolio, a.Services.Valuation, a.Config.Scheduler.Timeout)
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}

func newUpstream(name string, fetch config.FetchConfig, reg *metrics.Registry) *upstream.Client {
	return upstream.New(upstream.Options{
		Name:              name,
		Timeout:           fetch.HTTPTimeout,
		RequestsPerSecond: fetch.RequestsPerSecond,
		Burst:             fetch.Burst,
		BreakerFailures:   fetch.BreakerFailures,
		BreakerTimeout:    fetch.BreakerTimeout,
		Retry: retry.Policy{
			MaxAttempts: fetch.RetryAttempts,
			Initial:     fetch.RetryInitial,
			Max:         fetch.RetryMax,
		},
		Metrics: reg,
	})
}
