package validation

import (
	"fmt"
	"strings"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// ValidateCreateTrade validates a trade submission.
//
// Required fields:
//   - instrument: non-empty, at most 32 characters
//   - kind: one of buy, sell, adjustment
//   - quantity: positive for buys and sells, non-zero for adjustments
//   - unitPrice: positive
//   - timestamp: YYYY-MM-DD or RFC3339
//
// Optional fields are validated when present: regime (see ParseRegime) and
// maturity, which must not precede the trade.
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTrade(req request.CreateTradeRequest) error {
	errors := make(map[string]string)

	instrument := strings.TrimSpace(req.Instrument)
	if instrument == "" {
		errors["instrument"] = "instrument is required"
	} else if len(instrument) > 32 {
		errors["instrument"] = "instrument must be 32 characters or less"
	}

	kind := model.TradeKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	switch {
	case req.Kind == "":
		errors["kind"] = "kind is required"
	case !model.ValidTradeKinds[kind]:
		errors["kind"] = fmt.Sprintf("invalid kind: %s", req.Kind)
	case kind == model.TradeAdjustment && req.Quantity == 0:
		errors["quantity"] = "quantity must be non-zero"
	case kind != model.TradeAdjustment && !positive(req.Quantity):
		errors["quantity"] = "quantity must be positive"
	}

	if !positive(req.UnitPrice) {
		errors["unitPrice"] = "unitPrice must be positive"
	}

	if len(req.AssetClass) > 50 {
		errors["assetClass"] = "assetClass must be 50 characters or less"
	}

	ts := requireTime("timestamp", req.Timestamp, errors)

	if req.Regime != nil {
		ParseRegime(*req.Regime, "regime", errors)
	}

	if req.Maturity != nil {
		maturity := requireTime("maturity", *req.Maturity, errors)
		if !ts.IsZero() && !maturity.IsZero() && model.TruncateDay(maturity).Before(model.TruncateDay(ts)) {
			errors["maturity"] = "maturity must not be before the trade"
		}
	}

	return result(errors)
}

// ValidateUpdateHolding validates a holding terms update.
// All fields are optional, but if provided, they must meet the same
// constraints as on creation. A regime and clearRegime are mutually exclusive.
func ValidateUpdateHolding(req request.UpdateHoldingRequest) error {
	errors := make(map[string]string)

	if req.Name != nil && len(*req.Name) > 255 {
		errors["name"] = "name must be 255 characters or less"
	}

	if req.AssetClass != nil {
		if strings.TrimSpace(*req.AssetClass) == "" {
			errors["assetClass"] = "assetClass cannot be empty"
		} else if len(*req.AssetClass) > 50 {
			errors["assetClass"] = "assetClass must be 50 characters or less"
		}
	}

	if req.Regime != nil {
		if req.ClearRegime {
			errors["regime"] = "regime cannot be combined with clearRegime"
		} else {
			ParseRegime(*req.Regime, "regime", errors)
		}
	}

	optionalTime("maturity", req.Maturity, errors)

	return result(errors)
}
