package validation

import (
	"github.com/ndewijer/portfolio-valuation/internal/api/request"
)

// ValidateIndexedValuation validates a stateless indexed valuation request.
// The entry price must be positive, the entry date valid and the regime
// well-formed. asOf defaults to now and must not precede the entry date.
func ValidateIndexedValuation(req request.IndexedValuationRequest) error {
	errors := make(map[string]string)

	if !positive(req.EntryPrice) {
		errors["entryPrice"] = "entryPrice must be positive"
	}

	entry := requireTime("entryDate", req.EntryDate, errors)
	ParseRegime(req.Regime, "regime", errors)

	if req.AsOf != nil {
		asOf := requireTime("asOf", *req.AsOf, errors)
		if !entry.IsZero() && !asOf.IsZero() && asOf.Before(entry) {
			errors["asOf"] = "asOf must not be before entryDate"
		}
	}

	return result(errors)
}
