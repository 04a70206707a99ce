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

// RebalanceRepository stores rebalance configurations, their targets and the
// log of executed rebalances.
type RebalanceRepository struct {
	db *sql.DB
}

// NewRebalanceRepository creates a new RebalanceRepository with the provided database connection.
func NewRebalanceRepository(db *sql.DB) *RebalanceRepository {
	return &RebalanceRepository{db: db}
}

// GetConfig retrieves the active configuration of a portfolio.
// Returns apperrors.ErrRebalanceConfigNotFound when none was saved.
func (r *RebalanceRepository) GetConfig(ctx context.Context, portfolioID string) (model.RebalanceConfig, error) {
	query := `
		SELECT portfolio_id, periodicity, start_date, last_rebalance_date, updated_at
		FROM rebalance_config
		WHERE portfolio_id = ?
	`

	var cfg model.RebalanceConfig
	var periodicity, startStr, updatedStr string
	var lastStr sql.NullString

	err := r.db.QueryRowContext(ctx, query, portfolioID).Scan(
		&cfg.PortfolioID, &periodicity, &startStr, &lastStr, &updatedStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RebalanceConfig{}, apperrors.ErrRebalanceConfigNotFound
	}
	if err != nil {
		return model.RebalanceConfig{}, fmt.Errorf("failed to query rebalance_config: %w", err)
	}

	cfg.Periodicity = model.Periodicity(periodicity)
	if cfg.StartDate, err = ParseTime(startStr); err != nil {
		return model.RebalanceConfig{}, err
	}
	if cfg.UpdatedAt, err = ParseTime(updatedStr); err != nil {
		return model.RebalanceConfig{}, err
	}
	if cfg.LastRebalanceDate, err = parseNullTime(lastStr); err != nil {
		return model.RebalanceConfig{}, err
	}

	cfg.Targets, err = r.getTargets(ctx, portfolioID)
	if err != nil {
		return model.RebalanceConfig{}, err
	}
	return cfg, nil
}

func (r *RebalanceRepository) getTargets(ctx context.Context, portfolioID string) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT asset_class, target_pct FROM rebalance_target WHERE portfolio_id = ?`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rebalance_target table: %w", err)
	}
	defer rows.Close()

	targets := make(map[string]float64)
	for rows.Next() {
		var class string
		var pct float64
		if err := rows.Scan(&class, &pct); err != nil {
			return nil, fmt.Errorf("failed to scan rebalance_target table results: %w", err)
		}
		targets[class] = pct
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rebalance_target table: %w", err)
	}
	return targets, nil
}

// SaveConfig creates or replaces the configuration of cfg.PortfolioID. The
// start date of an existing configuration is kept, and a nil
// LastRebalanceDate keeps the stored one. Targets are replaced wholesale.
func (r *RebalanceRepository) SaveConfig(ctx context.Context, cfg model.RebalanceConfig) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO rebalance_config (portfolio_id, periodicity, start_date, last_rebalance_date, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id) DO UPDATE SET
			periodicity = excluded.periodicity,
			last_rebalance_date = COALESCE(excluded.last_rebalance_date, rebalance_config.last_rebalance_date),
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		cfg.PortfolioID,
		string(cfg.Periodicity),
		formatTimestamp(cfg.StartDate),
		nullTimestamp(cfg.LastRebalanceDate),
		formatTimestamp(cfg.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rebalance_config: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM rebalance_target WHERE portfolio_id = ?`, cfg.PortfolioID); err != nil {
		return fmt.Errorf("failed to clear rebalance_target: %w", err)
	}

	for class, pct := range cfg.Targets {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO rebalance_target (portfolio_id, asset_class, target_pct) VALUES (?, ?, ?)`,
			cfg.PortfolioID, class, pct)
		if err != nil {
			return fmt.Errorf("failed to insert rebalance_target: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebalance config: %w", err)
	}
	return nil
}

// RecordEvent appends ev to the rebalance log and moves the configuration's
// last rebalance date to ev.Timestamp.
func (r *RebalanceRepository) RecordEvent(ctx context.Context, ev *model.RebalanceEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE rebalance_config SET last_rebalance_date = ?, updated_at = ? WHERE portfolio_id = ?`,
		formatTimestamp(ev.Timestamp), formatTimestamp(time.Now().UTC()), ev.PortfolioID)
	if err != nil {
		return fmt.Errorf("failed to update rebalance_config: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return apperrors.ErrRebalanceConfigNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rebalance_event (id, portfolio_id, timestamp, note) VALUES (?, ?, ?, ?)`,
		ev.ID, ev.PortfolioID, formatTimestamp(ev.Timestamp), ev.Note)
	if err != nil {
		return fmt.Errorf("failed to insert rebalance_event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebalance event: %w", err)
	}
	return nil
}

// GetEvents lists executed rebalances, most recent first.
func (r *RebalanceRepository) GetEvents(ctx context.Context, portfolioID string) ([]model.RebalanceEvent, error) {
	query := `
		SELECT id, portfolio_id, timestamp, note
		FROM rebalance_event
		WHERE portfolio_id = ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rebalance_event table: %w", err)
	}
	defer rows.Close()

	events := []model.RebalanceEvent{}
	for rows.Next() {
		var ev model.RebalanceEvent
		var timestampStr string
		if err := rows.Scan(&ev.ID, &ev.PortfolioID, &timestampStr, &ev.Note); err != nil {
			return nil, fmt.Errorf("failed to scan rebalance_event table results: %w", err)
		}
		if ev.Timestamp, err = ParseTime(timestampStr); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rebalance_event table: %w", err)
	}
	return events, nil
}
