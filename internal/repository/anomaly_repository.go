package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// AnomalyRepository persists valuations that were rejected and replaced by a
// fallback price.
type AnomalyRepository struct {
	db *sql.DB
}

// NewAnomalyRepository creates a new AnomalyRepository with the provided database connection.
func NewAnomalyRepository(db *sql.DB) *AnomalyRepository {
	return &AnomalyRepository{db: db}
}

// InsertAnomaly records a, assigning an ID when it has none.
func (r *AnomalyRepository) InsertAnomaly(ctx context.Context, a *model.Anomaly) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query := `
		INSERT INTO valuation_anomaly (
			id, portfolio_id, holding_id, instrument, regime, reason, entry_price, computed_price, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.PortfolioID, a.HoldingID, a.Instrument, a.Regime, string(a.Reason),
		a.EntryPrice, a.ComputedPrice, formatTimestamp(a.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert valuation_anomaly: %w", err)
	}
	return nil
}

// GetAnomalies lists the most recent anomalies of a portfolio, newest first.
// A non-positive limit returns all of them.
func (r *AnomalyRepository) GetAnomalies(ctx context.Context, portfolioID string, limit int) ([]model.Anomaly, error) {
	query := `
		SELECT id, portfolio_id, holding_id, instrument, regime, reason, entry_price, computed_price, recorded_at
		FROM valuation_anomaly
		WHERE portfolio_id = ?
		ORDER BY recorded_at DESC
	`
	args := []any{portfolioID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query valuation_anomaly table: %w", err)
	}
	defer rows.Close()

	anomalies := []model.Anomaly{}
	for rows.Next() {
		var a model.Anomaly
		var reason, recordedStr string

		err := rows.Scan(
			&a.ID, &a.PortfolioID, &a.HoldingID, &a.Instrument, &a.Regime, &reason,
			&a.EntryPrice, &a.ComputedPrice, &recordedStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan valuation_anomaly table results: %w", err)
		}
		a.Reason = model.AnomalyReason(reason)
		if a.RecordedAt, err = ParseTime(recordedStr); err != nil {
			return nil, err
		}
		anomalies = append(anomalies, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating valuation_anomaly table: %w", err)
	}
	return anomalies, nil
}
