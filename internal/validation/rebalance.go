package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// targetSumTolerance is how far target percentages may drift from 100 in total.
const targetSumTolerance = 0.01

// ValidateRebalanceConfig validates a rebalance configuration.
//
// Required fields:
//   - periodicity: monthly, quarterly, semiannual or annual
//   - targets: at least one asset class, each between 0 and 100, summing to 100
//
// lastRebalanceDate is optional and must be a valid date when given.
func ValidateRebalanceConfig(req request.RebalanceConfigRequest) error {
	errors := make(map[string]string)

	if _, err := model.ParsePeriodicity(req.Periodicity); err != nil {
		errors["periodicity"] = err.Error()
	}

	if len(req.Targets) == 0 {
		errors["targets"] = "at least one target is required"
	} else {
		sum := 0.0
		for class, pct := range req.Targets {
			if strings.TrimSpace(class) == "" {
				errors["targets"] = "asset class cannot be empty"
				continue
			}
			if math.IsNaN(pct) || pct < 0 || pct > 100 {
				errors["targets."+class] = "target must be between 0 and 100"
				continue
			}
			sum += pct
		}
		if _, bad := errors["targets"]; !bad && math.Abs(sum-100) > targetSumTolerance {
			errors["targets"] = fmt.Sprintf("targets must add up to 100, got %g", sum)
		}
	}

	optionalTime("lastRebalanceDate", req.LastRebalanceDate, errors)

	return result(errors)
}

// ValidateRebalanceEvent validates the optional date of a rebalance event.
func ValidateRebalanceEvent(req request.RebalanceEventRequest) error {
	errors := make(map[string]string)

	optionalTime("date", req.Date, errors)
	if len(req.Note) > 500 {
		errors["note"] = "note must be 500 characters or less"
	}

	return result(errors)
}
