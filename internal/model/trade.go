package model

import "time"

// TradeKind classifies a ledger event.
type TradeKind string

const (
	TradeBuy        TradeKind = "buy"
	TradeSell       TradeKind = "sell"
	TradeAdjustment TradeKind = "adjustment"
)

// ValidTradeKinds contains the accepted trade kinds.
var ValidTradeKinds = map[TradeKind]bool{
	TradeBuy: true, TradeSell: true, TradeAdjustment: true,
}

// TradeEvent is an immutable ledger entry. QuantityDelta is signed: sells are
// stored negative so that replaying the ledger is a plain sum.
type TradeEvent struct {
	ID            string    `json:"id"`
	PortfolioID   string    `json:"portfolioId"`
	Instrument    string    `json:"instrument"`
	Timestamp     time.Time `json:"timestamp"`
	QuantityDelta float64   `json:"quantityDelta"`
	UnitPrice     float64   `json:"unitPrice"`
	Kind          TradeKind `json:"kind"`
}
