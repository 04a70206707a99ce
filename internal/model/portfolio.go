package model

import "time"

// Portfolio represents a portfolio from the database
type Portfolio struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Scope carries the request-scoped inputs every engine and service call needs:
// the portfolio being operated on and the instant valuations are evaluated at.
// It replaces any notion of an ambient current user.
type Scope struct {
	PortfolioID string
	AsOf        time.Time
}

// NewScope builds a Scope for portfolioID. A zero asOf means "now" in UTC.
func NewScope(portfolioID string, asOf time.Time) Scope {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return Scope{PortfolioID: portfolioID, AsOf: asOf.UTC()}
}
