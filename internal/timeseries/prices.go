package timeseries

import (
	"sort"
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// PriceSeries is a date-ordered quote history.
type PriceSeries []model.PricePoint

// NewPriceSeries returns a sorted copy of points with dates truncated to days.
func NewPriceSeries(points []model.PricePoint) PriceSeries {
	s := make(PriceSeries, len(points))
	for i, p := range points {
		s[i] = model.PricePoint{Date: model.TruncateDay(p.Date), Price: p.Price}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
	return s
}

// At returns the last price dated on or before t's day. There is no
// look-ahead: a point before the first quote has no price.
func (s PriceSeries) At(t time.Time) (float64, bool) {
	day := model.TruncateDay(t)
	n := sort.Search(len(s), func(i int) bool { return s[i].Date.After(day) })
	if n == 0 {
		return 0, false
	}
	return s[n-1].Price, true
}

// Sample reads the series at each grid point, producing gaps where no quote
// is known yet or the quote is not positive.
func (s PriceSeries) Sample(grid []time.Time) []model.Sample {
	out := make([]model.Sample, len(grid))
	for i, t := range grid {
		if p, ok := s.At(t); ok && p > 0 {
			out[i] = model.Some(p)
		}
	}
	return out
}

// AccumulateMonthly turns monthly percentage changes into an index level
// starting at 100. Each level is dated at the end of its observation month.
func AccumulateMonthly(points []model.RatePoint) PriceSeries {
	sorted := sortedRates(points)
	s := make(PriceSeries, 0, len(sorted))
	level := 100.0
	for _, p := range sorted {
		level *= 1 + p.Value/100
		s = append(s, model.PricePoint{Date: MonthEnd(p.Date), Price: level})
	}
	return s
}

// AccumulateDaily turns daily percentage rates into an index level starting
// at 100, dated at each observation.
func AccumulateDaily(points []model.RatePoint) PriceSeries {
	sorted := sortedRates(points)
	s := make(PriceSeries, 0, len(sorted))
	level := 100.0
	for _, p := range sorted {
		level *= 1 + p.Value/100
		s = append(s, model.PricePoint{Date: model.TruncateDay(p.Date), Price: level})
	}
	return s
}

func sortedRates(points []model.RatePoint) []model.RatePoint {
	sorted := make([]model.RatePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	return sorted
}
