package timeseries

import "github.com/ndewijer/portfolio-valuation/internal/model"

// Rebase normalizes series to 100 at its first positive sample. Missing and
// non-positive samples stay gaps. A series without a positive sample comes
// back as all gaps.
func Rebase(series []model.Sample) []model.Sample {
	out := make([]model.Sample, len(series))
	base := 0.0
	for _, s := range series {
		if s.Valid && s.Value > 0 {
			base = s.Value
			break
		}
	}
	if base == 0 {
		return out
	}
	for i, s := range series {
		if s.Valid && s.Value > 0 {
			out[i] = model.Some(s.Value / base * 100)
		}
	}
	return out
}

// Samples lifts a plain series into samples, treating non-positive values as gaps.
func Samples(values []float64) []model.Sample {
	out := make([]model.Sample, len(values))
	for i, v := range values {
		if v > 0 {
			out[i] = model.Some(v)
		}
	}
	return out
}
