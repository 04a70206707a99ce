package validation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/indexation"
	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// Common validation errors
var (
	ErrInvalidUUID = fmt.Errorf("invalid UUID format")
)

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	return nil
}

// ParseRegime validates a regime request and builds the regime variant.
// Field errors are added to errs under prefix.
func ParseRegime(req request.RegimeRequest, prefix string, errs map[string]string) model.Regime {
	kind, ok := model.ParseRegimeKind(req.Kind)
	if !ok {
		errs[prefix+".kind"] = fmt.Sprintf("invalid regime kind: %s", req.Kind)
		return nil
	}

	regime := model.NewRegime(string(kind), req.Rate)
	if !indexation.ValidParameter(regime) {
		switch kind {
		case model.RegimeCDISpread, model.RegimeIPCASpread:
			errs[prefix+".rate"] = "spread must be greater than 0 and at most 50"
		default:
			errs[prefix+".rate"] = "rate must be greater than 0 and at most 1000"
		}
	}

	if req.BasePrice != nil && !positive(*req.BasePrice) {
		errs[prefix+".basePrice"] = "basePrice must be positive"
	}
	if req.BaseDate != nil {
		if _, err := request.ParseTime(*req.BaseDate); err != nil {
			errs[prefix+".baseDate"] = err.Error()
		}
	}
	return regime
}

func positive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func requireTime(field, value string, errs map[string]string) time.Time {
	if strings.TrimSpace(value) == "" {
		errs[field] = field + " is required"
		return time.Time{}
	}
	t, err := request.ParseTime(value)
	if err != nil {
		errs[field] = err.Error()
	}
	return t
}

func optionalTime(field string, value *string, errs map[string]string) {
	if value == nil {
		return
	}
	if _, err := request.ParseTime(*value); err != nil {
		errs[field] = err.Error()
	}
}

func result(errs map[string]string) error {
	if len(errs) > 0 {
		return &Error{Fields: errs}
	}
	return nil
}
