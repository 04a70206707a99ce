package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// TradeRepository provides data access methods for the trade_event table.
// The ledger is append-only: events are inserted and read, never updated.
type TradeRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTradeRepository creates a new TradeRepository with the provided database connection.
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// WithTx returns a new TradeRepository scoped to the provided transaction.
func (r *TradeRepository) WithTx(tx *sql.Tx) *TradeRepository {
	return &TradeRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *TradeRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// InsertTrade appends ev to the ledger, assigning an ID when it has none.
func (r *TradeRepository) InsertTrade(ctx context.Context, ev *model.TradeEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	query := `
		INSERT INTO trade_event (id, portfolio_id, instrument, timestamp, quantity_delta, unit_price, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		ev.ID,
		ev.PortfolioID,
		ev.Instrument,
		formatTimestamp(ev.Timestamp),
		ev.QuantityDelta,
		ev.UnitPrice,
		string(ev.Kind),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade_event: %w", err)
	}
	return nil
}

// GetTrades retrieves the ledger of a portfolio in chronological order.
// An empty instrument returns events for every instrument.
func (r *TradeRepository) GetTrades(ctx context.Context, portfolioID, instrument string) ([]model.TradeEvent, error) {
	query := `
		SELECT id, portfolio_id, instrument, timestamp, quantity_delta, unit_price, kind
		FROM trade_event
		WHERE portfolio_id = ?
	`
	args := []any{portfolioID}

	if instrument != "" {
		query += " AND instrument = ?"
		args = append(args, instrument)
	}
	query += " ORDER BY timestamp ASC, created_at ASC"

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade_event table: %w", err)
	}
	defer rows.Close()

	events := []model.TradeEvent{}
	for rows.Next() {
		var ev model.TradeEvent
		var timestampStr, kind string

		err := rows.Scan(
			&ev.ID,
			&ev.PortfolioID,
			&ev.Instrument,
			&timestampStr,
			&ev.QuantityDelta,
			&ev.UnitPrice,
			&kind,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade_event table results: %w", err)
		}

		ev.Timestamp, err = ParseTime(timestampStr)
		if err != nil {
			return nil, err
		}
		ev.Kind = model.TradeKind(kind)

		events = append(events, ev)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade_event table: %w", err)
	}

	return events, nil
}
