package request

// RebalanceConfigRequest represents the request body for saving a portfolio's
// rebalance configuration. Targets map asset class to a percentage; they must
// add up to 100.
type RebalanceConfigRequest struct {
	Periodicity       string             `json:"periodicity"`
	Targets           map[string]float64 `json:"targets"`
	LastRebalanceDate *string            `json:"lastRebalanceDate,omitempty"`
}

// RebalanceEventRequest records an executed rebalance. Date defaults to now.
type RebalanceEventRequest struct {
	Date *string `json:"date,omitempty"`
	Note string  `json:"note,omitempty"`
}
