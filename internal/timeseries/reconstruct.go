package timeseries

import (
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// Input is everything a reconstruction needs. Prices and Benchmarks hold the
// full histories fetched once per series; a series absent from either map is
// treated as unavailable.
type Input struct {
	Granularity model.Granularity
	Start       time.Time
	End         time.Time
	Ledger      *Ledger
	Prices      map[string]PriceSeries
	Benchmarks  map[string]PriceSeries
}

// Reconstruct samples the ledger and market data on the granularity's grid.
// Value and price-return curves are computed on the full weekly or monthly
// grid and then reduced, so coarse granularities see the same sub-period
// returns as fine ones. Rebasing happens after reduction.
func Reconstruct(in Input) model.HistoryComparison {
	out := model.HistoryComparison{
		Granularity: in.Granularity,
		Benchmarks:  make(map[string][]model.Sample, len(in.Benchmarks)),
	}

	grid := Grid(in.Granularity, in.Start, in.End)
	if len(grid) == 0 || in.Ledger == nil {
		return out
	}

	keep := Reduce(in.Granularity, grid)
	points := pick(grid, keep)

	out.Timestamps = points
	out.Labels = Labels(in.Granularity, points)
	out.Value = pick(ValueCurve(in.Ledger, in.Prices, grid), keep)
	out.ValueRebased = Rebase(Samples(out.Value))
	out.PriceReturn = Rebase(Samples(pick(PriceReturn(in.Ledger, in.Prices, grid), keep)))

	for key, series := range in.Benchmarks {
		out.Benchmarks[key] = Rebase(pick(series.Sample(grid), keep))
	}

	for _, instr := range in.Ledger.Instruments() {
		if len(in.Prices[instr]) == 0 {
			out.MissingInstruments = append(out.MissingInstruments, instr)
		}
	}
	return out
}
