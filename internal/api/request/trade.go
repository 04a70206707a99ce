package request

// RegimeRequest describes the indexation terms of a fixed-income holding.
// Rate is a percentage of the index for SELIC, CDI and IPCA, a spread for
// CDI+ and IPCA+, and an annual rate for FIXED.
type RegimeRequest struct {
	Kind      string   `json:"kind"`
	Rate      float64  `json:"rate"`
	BasePrice *float64 `json:"basePrice,omitempty"`
	BaseDate  *string  `json:"baseDate,omitempty"`
}

// CreateTradeRequest represents the request body for appending a trade event.
// Quantity is positive for buys and sells; adjustments carry their own sign.
// Name, asset class, regime and maturity only apply when the trade opens a
// new holding.
type CreateTradeRequest struct {
	Instrument string         `json:"instrument"`
	Name       string         `json:"name"`
	AssetClass string         `json:"assetClass"`
	Kind       string         `json:"kind"`
	Quantity   float64        `json:"quantity"`
	UnitPrice  float64        `json:"unitPrice"`
	Timestamp  string         `json:"timestamp"`
	Regime     *RegimeRequest `json:"regime,omitempty"`
	Maturity   *string        `json:"maturity,omitempty"`
}

// UpdateHoldingRequest changes the descriptive and indexation terms of a
// holding. Every field is optional; ClearRegime turns an indexed holding back
// into a market-quoted one.
type UpdateHoldingRequest struct {
	Name        *string        `json:"name,omitempty"`
	AssetClass  *string        `json:"assetClass,omitempty"`
	Regime      *RegimeRequest `json:"regime,omitempty"`
	ClearRegime bool           `json:"clearRegime,omitempty"`
	Maturity    *string        `json:"maturity,omitempty"`
}

// IndexedValuationRequest asks for the fair price of an indexed position
// without touching any stored holding.
type IndexedValuationRequest struct {
	EntryPrice float64       `json:"entryPrice"`
	EntryDate  string        `json:"entryDate"`
	AsOf       *string       `json:"asOf,omitempty"`
	Regime     RegimeRequest `json:"regime"`
}
