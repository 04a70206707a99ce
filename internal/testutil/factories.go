package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/repository"
)

// PortfolioBuilder provides a fluent interface for creating test portfolios.
//
// Example usage:
//
//	// Simple creation with defaults
//	portfolio := testutil.NewPortfolio().Build(t, db)
//
//	// Customized portfolio
//	portfolio := testutil.NewPortfolio().
//	    WithName("Custom Portfolio").
//	    WithDescription("My description").
//	    Build(t, db)
type PortfolioBuilder struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// NewPortfolio creates a PortfolioBuilder with sensible defaults.
func NewPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{
		ID:          MakeID(),
		Name:        MakePortfolioName("Test Portfolio"),
		Description: "Test description",
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

// WithID sets a custom ID.
func (b *PortfolioBuilder) WithID(id string) *PortfolioBuilder {
	b.ID = id
	return b
}

// WithName sets a custom name.
func (b *PortfolioBuilder) WithName(name string) *PortfolioBuilder {
	b.Name = name
	return b
}

// WithDescription sets a custom description.
func (b *PortfolioBuilder) WithDescription(desc string) *PortfolioBuilder {
	b.Description = desc
	return b
}

// Build creates the portfolio in the database and returns it.
func (b *PortfolioBuilder) Build(t *testing.T, db *sql.DB) model.Portfolio {
	t.Helper()

	query := `
		INSERT INTO portfolio (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.Name, b.Description, b.CreatedAt.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create test portfolio: %v", err)
	}

	return model.Portfolio{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
}

// CreatePortfolio creates a portfolio with the given name and default values.
//
// Example usage:
//
//	portfolio := testutil.CreatePortfolio(t, db, "My Portfolio")
func CreatePortfolio(t *testing.T, db *sql.DB, name string) model.Portfolio {
	t.Helper()
	return NewPortfolio().WithName(name).Build(t, db)
}

// HoldingBuilder provides a fluent interface for creating test holdings.
// Holdings are market-quoted unless a regime is set.
//
// Example usage:
//
//	holding := testutil.NewHolding(portfolio.ID, "PETR4").
//	    WithQuantity(100).
//	    WithEntry(30, entryDate).
//	    Build(t, db)
//
//	bond := testutil.NewHolding(portfolio.ID, "CDB-XP").
//	    WithRegime(model.CDI{Percent: 110}).
//	    WithAssetClass("Fixed Income").
//	    Build(t, db)
type HoldingBuilder struct {
	holding model.Holding
}

// NewHolding creates a HoldingBuilder with sensible defaults.
func NewHolding(portfolioID, instrument string) *HoldingBuilder {
	entry := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return &HoldingBuilder{holding: model.Holding{
		ID:           MakeID(),
		PortfolioID:  portfolioID,
		Instrument:   instrument,
		Name:         instrument,
		AssetClass:   "Stocks",
		Quantity:     10,
		EntryPrice:   100,
		AverageCost:  100,
		EntryDate:    entry,
		CurrentPrice: 100,
		CurrentValue: 1000,
	}}
}

// WithAssetClass sets the asset class.
func (b *HoldingBuilder) WithAssetClass(class string) *HoldingBuilder {
	b.holding.AssetClass = class
	return b
}

// WithQuantity sets the quantity and recomputes the current value.
func (b *HoldingBuilder) WithQuantity(q float64) *HoldingBuilder {
	b.holding.Quantity = q
	b.holding.CurrentValue = q * b.holding.CurrentPrice
	return b
}

// WithEntry sets the entry price, average cost and entry date.
func (b *HoldingBuilder) WithEntry(price float64, date time.Time) *HoldingBuilder {
	b.holding.EntryPrice = price
	b.holding.AverageCost = price
	b.holding.EntryDate = date
	return b
}

// WithCurrentPrice sets the stored price and recomputes the current value.
func (b *HoldingBuilder) WithCurrentPrice(price float64) *HoldingBuilder {
	b.holding.CurrentPrice = price
	b.holding.CurrentValue = b.holding.Quantity * price
	return b
}

// WithRegime makes the holding indexed.
func (b *HoldingBuilder) WithRegime(r model.Regime) *HoldingBuilder {
	b.holding.Regime = r
	return b
}

// WithBase sets the stored base price and date.
func (b *HoldingBuilder) WithBase(price float64, date time.Time) *HoldingBuilder {
	b.holding.BasePrice = &price
	b.holding.BaseDate = &date
	return b
}

// WithMaturity sets the maturity date.
func (b *HoldingBuilder) WithMaturity(date time.Time) *HoldingBuilder {
	b.holding.Maturity = &date
	return b
}

// Build creates the holding in the database and returns it.
func (b *HoldingBuilder) Build(t *testing.T, db *sql.DB) model.Holding {
	t.Helper()

	h := b.holding
	if err := repository.NewHoldingRepository(db).InsertHolding(context.Background(), &h); err != nil {
		t.Fatalf("Failed to create test holding: %v", err)
	}
	return h
}

// TradeBuilder provides a fluent interface for appending test ledger events.
// Builders write the event only; holdings are not touched.
//
// Example usage:
//
//	testutil.NewTrade(portfolio.ID, "PETR4").
//	    Buy(100, 30).
//	    On(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)).
//	    Build(t, db)
type TradeBuilder struct {
	event model.TradeEvent
}

// NewTrade creates a TradeBuilder for a buy of 1 unit at 100.
func NewTrade(portfolioID, instrument string) *TradeBuilder {
	return &TradeBuilder{event: model.TradeEvent{
		ID:            MakeID(),
		PortfolioID:   portfolioID,
		Instrument:    instrument,
		Timestamp:     time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		QuantityDelta: 1,
		UnitPrice:     100,
		Kind:          model.TradeBuy,
	}}
}

// Buy sets a positive delta.
func (b *TradeBuilder) Buy(quantity, price float64) *TradeBuilder {
	b.event.Kind = model.TradeBuy
	b.event.QuantityDelta = quantity
	b.event.UnitPrice = price
	return b
}

// Sell sets a negative delta.
func (b *TradeBuilder) Sell(quantity, price float64) *TradeBuilder {
	b.event.Kind = model.TradeSell
	b.event.QuantityDelta = -quantity
	b.event.UnitPrice = price
	return b
}

// On sets the event timestamp.
func (b *TradeBuilder) On(ts time.Time) *TradeBuilder {
	b.event.Timestamp = ts
	return b
}

// Build appends the event to the ledger and returns it.
func (b *TradeBuilder) Build(t *testing.T, db *sql.DB) model.TradeEvent {
	t.Helper()

	ev := b.event
	if err := repository.NewTradeRepository(db).InsertTrade(context.Background(), &ev); err != nil {
		t.Fatalf("Failed to create test trade: %v", err)
	}
	return ev
}
