package testutil

import (
	"database/sql"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/ndewijer/portfolio-valuation/internal/config"
	"github.com/ndewijer/portfolio-valuation/internal/indexation"
	"github.com/ndewijer/portfolio-valuation/internal/repository"
	"github.com/ndewijer/portfolio-valuation/internal/service"
)

func NewTestPortfolioService(t *testing.T, db *sql.DB) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewPortfolioRepository(db),
		repository.NewHoldingRepository(db),
	)
}

func NewTestLedgerService(t *testing.T, db *sql.DB) *service.LedgerService {
	t.Helper()

	return service.NewLedgerService(
		db,
		repository.NewPortfolioRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewTradeRepository(db),
	)
}

// NewTestValuationService wires a ValuationService with the default
// valuation conventions and the given sources. Metrics are disabled.
func NewTestValuationService(t *testing.T, db *sql.DB, quotes service.QuoteSource, rates service.RateSource) *service.ValuationService {
	t.Helper()

	return service.NewValuationService(
		repository.NewPortfolioRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewTradeRepository(db),
		repository.NewAnomalyRepository(db),
		indexation.NewEngine(config.Default().Valuation),
		quotes,
		rates,
		nil,
	)
}

// NewTestHistoryService wires a HistoryService with the embedded benchmark
// catalogue and the given sources.
func NewTestHistoryService(t *testing.T, db *sql.DB, quotes service.QuoteSource, rates service.RateSource) *service.HistoryService {
	t.Helper()

	benchmarks, err := config.LoadBenchmarks("")
	if err != nil {
		t.Fatalf("Failed to load benchmarks: %v", err)
	}

	return service.NewHistoryService(
		repository.NewPortfolioRepository(db),
		repository.NewTradeRepository(db),
		quotes,
		rates,
		benchmarks,
		config.Default().Fetch,
		nil,
	)
}

func NewTestRebalanceService(t *testing.T, db *sql.DB) *service.RebalanceService {
	t.Helper()

	return service.NewRebalanceService(
		repository.NewPortfolioRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewRebalanceRepository(db),
	)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakePortfolioName generates a unique portfolio name for testing.
//
// Example usage:
//
//	name := testutil.MakePortfolioName("MyPortfolio")
//	// Returns: "MyPortfolio ABC123"
func MakePortfolioName(base string) string {
	if base == "" {
		base = "Portfolio"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
