package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrPortfolioNotFound indicates that a portfolio with the given ID does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrHoldingNotFound indicates that a holding with the given ID does not exist.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrRebalanceConfigNotFound indicates the portfolio has no rebalance configuration yet.
	ErrRebalanceConfigNotFound = errors.New("rebalance configuration not found")

	// ErrSymbolNotFound indicates that a quote lookup returned no results.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInsufficientQuantity indicates a sell larger than the quantity held.
	ErrInsufficientQuantity = errors.New("insufficient quantity for sale")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrNoBasePrice indicates that none of the base price strategies produced a value.
	ErrNoBasePrice = errors.New("no base price could be resolved")

	ErrInvalidPortfolioID = errors.New("portfolio ID is required")
	ErrInvalidDate        = errors.New("date parameter is invalid")
	ErrInvalidGranularity = errors.New("granularity parameter is invalid")
)

// Upstream errors describe unavailable market data. They are reported as gaps
// or per-holding failures, never as a failed batch.
var (
	// ErrRateUnavailable indicates the rate source has no usable value for an index.
	ErrRateUnavailable = errors.New("rate unavailable")

	// ErrQuoteUnavailable indicates the quote source returned no price for an instrument.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrUpstreamStatus indicates a non-success HTTP status from a data provider.
	ErrUpstreamStatus = errors.New("unexpected upstream status")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToRetrievePortfolios = errors.New("failed to retrieve portfolios")
	ErrFailedToRetrieveHoldings   = errors.New("failed to retrieve holdings")
	ErrFailedToRetrieveTrades     = errors.New("failed to retrieve trades")
	ErrFailedToRetrieveAnomalies  = errors.New("failed to retrieve anomalies")
	ErrFailedToRevalue            = errors.New("failed to revalue holdings")
	ErrFailedToGetHistory         = errors.New("failed to get portfolio history")
	ErrFailedToGetRebalanceStatus = errors.New("failed to get rebalance status")
	ErrFailedToGetVersionInfo     = errors.New("failed to get version information")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrLedgerUnreadable indicates the trade ledger could not be read; reconstruction cannot proceed.
	ErrLedgerUnreadable = errors.New("trade ledger unreadable")

	// ErrDataInconsistency indicates that the data is in an inconsistent state.
	ErrDataInconsistency = errors.New("data inconsistency detected")
)
