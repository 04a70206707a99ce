package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// HoldingRepository provides data access methods for the holding table.
// Holdings carry the derived state of the trade ledger plus the latest
// valuation written by the revaluation batch.
type HoldingRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// WithTx returns a new HoldingRepository scoped to the provided transaction.
func (r *HoldingRepository) WithTx(tx *sql.Tx) *HoldingRepository {
	return &HoldingRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *HoldingRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const holdingColumns = `
	id, portfolio_id, instrument, name, asset_class, quantity, entry_price, average_cost, entry_date,
	regime_kind, regime_rate, base_price, base_date, maturity,
	current_price, current_value, dividend_yield, price_earnings, price_to_book, return_on_equity, updated_at
`

// GetHoldings retrieves every holding of a portfolio ordered by instrument.
// Returns an empty slice if the portfolio holds nothing.
func (r *HoldingRepository) GetHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holding WHERE portfolio_id = ? ORDER BY instrument ASC`

	rows, err := r.getQuerier().QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	holdings := []model.Holding{}
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}

	return holdings, nil
}

// GetHoldingOnID retrieves a single holding.
// Returns apperrors.ErrHoldingNotFound when no row matches.
func (r *HoldingRepository) GetHoldingOnID(ctx context.Context, holdingID string) (model.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holding WHERE id = ?`
	return r.getOne(ctx, query, holdingID)
}

// GetHoldingByInstrument retrieves the holding of instrument within a portfolio.
// Returns apperrors.ErrHoldingNotFound when the portfolio does not hold it.
func (r *HoldingRepository) GetHoldingByInstrument(ctx context.Context, portfolioID, instrument string) (model.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holding WHERE portfolio_id = ? AND instrument = ?`
	return r.getOne(ctx, query, portfolioID, instrument)
}

func (r *HoldingRepository) getOne(ctx context.Context, query string, args ...any) (model.Holding, error) {
	h, err := scanHolding(r.getQuerier().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Holding{}, apperrors.ErrHoldingNotFound
	}
	if err != nil {
		return model.Holding{}, err
	}
	return h, nil
}

// InsertHolding stores h, assigning an ID when it has none.
func (r *HoldingRepository) InsertHolding(ctx context.Context, h *model.Holding) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	kind, rate := regimeColumns(h.Regime)

	query := `
		INSERT INTO holding (
			id, portfolio_id, instrument, name, asset_class, quantity, entry_price, average_cost, entry_date,
			regime_kind, regime_rate, base_price, base_date, maturity,
			current_price, current_value, dividend_yield, price_earnings, price_to_book, return_on_equity, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		h.ID, h.PortfolioID, h.Instrument, h.Name, h.AssetClass,
		h.Quantity, h.EntryPrice, h.AverageCost, formatDate(h.EntryDate),
		kind, rate, nullFloat(h.BasePrice), nullDate(h.BaseDate), nullDate(h.Maturity),
		h.CurrentPrice, h.CurrentValue,
		nullFloat(h.Fundamentals.DividendYield), nullFloat(h.Fundamentals.PriceEarnings),
		nullFloat(h.Fundamentals.PriceToBook), nullFloat(h.Fundamentals.ReturnOnEquity),
		nullTimestamp(h.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}
	return nil
}

// UpdatePosition writes the ledger-derived fields of h: quantity, cost basis
// and the value implied by the current price.
func (r *HoldingRepository) UpdatePosition(ctx context.Context, h model.Holding) error {
	query := `
		UPDATE holding
		SET quantity = ?, average_cost = ?, current_value = ?
		WHERE id = ?
	`
	return r.execOne(ctx, "update holding position", query, h.Quantity, h.AverageCost, h.CurrentValue, h.ID)
}

// UpdateTerms writes the descriptive and indexation fields of h.
func (r *HoldingRepository) UpdateTerms(ctx context.Context, h model.Holding) error {
	kind, rate := regimeColumns(h.Regime)
	query := `
		UPDATE holding
		SET name = ?, asset_class = ?, regime_kind = ?, regime_rate = ?,
			base_price = ?, base_date = ?, maturity = ?
		WHERE id = ?
	`
	return r.execOne(ctx, "update holding terms", query,
		h.Name, h.AssetClass, kind, rate,
		nullFloat(h.BasePrice), nullDate(h.BaseDate), nullDate(h.Maturity),
		h.ID,
	)
}

// UpdateValuation persists a revaluation. Fundamentals are only overwritten
// where the new quote reported them.
func (r *HoldingRepository) UpdateValuation(ctx context.Context, holdingID string, price, value float64, f model.Fundamentals, at time.Time) error {
	query := `
		UPDATE holding
		SET current_price = ?, current_value = ?,
			dividend_yield = COALESCE(?, dividend_yield),
			price_earnings = COALESCE(?, price_earnings),
			price_to_book = COALESCE(?, price_to_book),
			return_on_equity = COALESCE(?, return_on_equity),
			updated_at = ?
		WHERE id = ?
	`
	return r.execOne(ctx, "update holding valuation", query,
		price, value,
		nullFloat(f.DividendYield), nullFloat(f.PriceEarnings), nullFloat(f.PriceToBook), nullFloat(f.ReturnOnEquity),
		formatTimestamp(at), holdingID,
	)
}

// DeleteHolding removes a fully liquidated holding.
func (r *HoldingRepository) DeleteHolding(ctx context.Context, holdingID string) error {
	return r.execOne(ctx, "delete holding", `DELETE FROM holding WHERE id = ?`, holdingID)
}

func (r *HoldingRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.getQuerier().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrHoldingNotFound
	}
	return nil
}

func regimeColumns(r model.Regime) (kind, rate any) {
	if r == nil {
		return nil, nil
	}
	return string(r.Kind()), r.Rate()
}

func scanHolding(row rowScanner) (model.Holding, error) {
	var (
		h                             model.Holding
		entryDateStr                  string
		regimeKind                    sql.NullString
		regimeRate, basePrice         sql.NullFloat64
		baseDate, maturity, updatedAt sql.NullString
		dividendYield, priceEarnings  sql.NullFloat64
		priceToBook, returnOnEquity   sql.NullFloat64
	)

	err := row.Scan(
		&h.ID, &h.PortfolioID, &h.Instrument, &h.Name, &h.AssetClass,
		&h.Quantity, &h.EntryPrice, &h.AverageCost, &entryDateStr,
		&regimeKind, &regimeRate, &basePrice, &baseDate, &maturity,
		&h.CurrentPrice, &h.CurrentValue,
		&dividendYield, &priceEarnings, &priceToBook, &returnOnEquity,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Holding{}, err
		}
		return model.Holding{}, fmt.Errorf("failed to scan holding: %w", err)
	}

	if h.EntryDate, err = ParseTime(entryDateStr); err != nil {
		return model.Holding{}, err
	}
	if h.BaseDate, err = parseNullTime(baseDate); err != nil {
		return model.Holding{}, err
	}
	if h.Maturity, err = parseNullTime(maturity); err != nil {
		return model.Holding{}, err
	}
	if h.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return model.Holding{}, err
	}

	if regimeKind.Valid && regimeKind.String != "" {
		h.Regime = model.NewRegime(regimeKind.String, regimeRate.Float64)
	}
	h.BasePrice = floatPtr(basePrice)
	h.Fundamentals = model.Fundamentals{
		DividendYield:  floatPtr(dividendYield),
		PriceEarnings:  floatPtr(priceEarnings),
		PriceToBook:    floatPtr(priceToBook),
		ReturnOnEquity: floatPtr(returnOnEquity),
	}
	return h, nil
}
