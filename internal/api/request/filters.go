package request

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// Anomaly listing page size bounds.
const (
	defaultAnomalyLimit = 50
	maxAnomalyLimit     = 500
)

// ParseHistoryFilters extracts and validates history reconstruction filters
// from query parameters. All parameters are optional.
//
// Validation rules:
//   - granularity: weekly, monthly, quarterly, semiannual or annual (defaults to monthly)
//   - start/end: Must be valid date/datetime strings (YYYY-MM-DD or RFC3339)
//   - start must not be after end when both are given
func ParseHistoryFilters(granularityParam, startParam, endParam string) (*model.HistoryFilters, error) {
	granularity, err := model.ParseGranularity(granularityParam)
	if err != nil {
		return nil, fmt.Errorf("invalid granularity: %w", err)
	}
	filters := &model.HistoryFilters{Granularity: granularity}

	if startParam != "" {
		start, err := ParseTime(startParam)
		if err != nil {
			return nil, fmt.Errorf("invalid start format: %w", err)
		}
		filters.Start = &start
	}

	if endParam != "" {
		end, err := ParseTime(endParam)
		if err != nil {
			return nil, fmt.Errorf("invalid end format: %w", err)
		}
		filters.End = &end
	}

	if filters.Start != nil && filters.End != nil && filters.Start.After(*filters.End) {
		return nil, fmt.Errorf("start %s is after end %s",
			filters.Start.Format(time.DateOnly), filters.End.Format(time.DateOnly))
	}

	return filters, nil
}

// ParseAsOf parses the optional as_of parameter. An empty value yields the
// zero time, which scopes resolve to now.
func ParseAsOf(asOfParam string) (time.Time, error) {
	if asOfParam == "" {
		return time.Time{}, nil
	}
	asOf, err := ParseTime(asOfParam)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as_of format: %w", err)
	}
	return asOf, nil
}

// ParseLimit parses the limit parameter of anomaly listings.
// Defaults to 50 and must be between 1 and 500.
func ParseLimit(limitParam string) (int, error) {
	if limitParam == "" {
		return defaultAnomalyLimit, nil
	}
	limit, err := strconv.Atoi(limitParam)
	if err != nil {
		return 0, fmt.Errorf("invalid limit: must be a number")
	}
	if limit < 1 || limit > maxAnomalyLimit {
		return 0, fmt.Errorf("invalid limit: must be between 1 and %d", maxAnomalyLimit)
	}
	return limit, nil
}

// ParseTime parses date strings from query parameters and request bodies.
// Accepts YYYY-MM-DD, RFC3339, and RFC3339 with milliseconds formats. The
// result is in UTC.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04:05.000Z07:00"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date or datetime", str)
}
