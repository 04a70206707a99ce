// Package scheduler runs the periodic revaluation of every portfolio.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// PortfolioLister lists the portfolios to revalue.
type PortfolioLister interface {
	GetAllPortfolios(ctx context.Context) ([]model.Portfolio, error)
}

// Revaluer revalues the holdings of one portfolio.
type Revaluer interface {
	RevalueAll(ctx context.Context, scope model.Scope) (model.RevalueResult, error)
}

// Scheduler triggers RevalueAll over every portfolio on a cron schedule.
// Runs never overlap: a tick that fires while the previous run is still in
// progress is dropped.
type Scheduler struct {
	cron       *cron.Cron
	portfolios PortfolioLister
	revaluer   Revaluer
	timeout    time.Duration

	mu      sync.Mutex
	running bool
}

// New creates a scheduler that fires on spec, a standard five-field cron
// expression evaluated in UTC. Each run is bounded by timeout.
func New(spec string, portfolios PortfolioLister, revaluer Revaluer, timeout time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		portfolios: portfolios,
		revaluer:   revaluer,
		timeout:    timeout,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("entries", len(s.cron.Entries())).Msg("revaluation scheduler started")
}

// Stop stops the schedule and waits for a run in progress, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("scheduler stop timed out with a run in progress")
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn().Msg("previous revaluation still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.RunOnce(ctx, time.Now().UTC())
}

// RunOnce revalues every portfolio at asOf and returns the per-portfolio
// results. A portfolio that fails is logged and left out of the map.
func (s *Scheduler) RunOnce(ctx context.Context, asOf time.Time) map[string]model.RevalueResult {
	results := make(map[string]model.RevalueResult)

	portfolios, err := s.portfolios.GetAllPortfolios(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled revaluation could not list portfolios")
		return results
	}

	for _, p := range portfolios {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("scheduled revaluation interrupted")
			break
		}
		res, err := s.revaluer.RevalueAll(ctx, model.NewScope(p.ID, asOf))
		if err != nil {
			log.Error().Err(err).Str("portfolio", p.ID).Msg("scheduled revaluation failed")
			continue
		}
		results[p.ID] = res
	}

	log.Info().Int("portfolios", len(results)).Msg("scheduled revaluation finished")
	return results
}
