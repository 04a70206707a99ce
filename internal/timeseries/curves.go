package timeseries

import "time"

// ValueCurve computes Σ quantity-at-time × price-at-time at every grid point.
// Instruments with a non-positive quantity or no known price contribute zero.
func ValueCurve(ledger *Ledger, prices map[string]PriceSeries, grid []time.Time) []float64 {
	values := make([]float64, len(grid))
	for i, t := range grid {
		for _, instr := range ledger.Instruments() {
			q := ledger.QuantityAt(instr, t)
			if q <= 0 {
				continue
			}
			if p, ok := prices[instr].At(t); ok {
				values[i] += q * p
			}
		}
	}
	return values
}

// PriceReturn chains sub-period returns into an index starting at 100. Each
// sub-period values the holdings of the previous point at both the previous
// and the current price, so contributions and withdrawals made at a grid
// point do not move the curve. A sub-period without a priced prior holding is
// neutral.
func PriceReturn(ledger *Ledger, prices map[string]PriceSeries, grid []time.Time) []float64 {
	if len(grid) == 0 {
		return nil
	}
	curve := make([]float64, len(grid))
	curve[0] = 100
	for i := 1; i < len(grid); i++ {
		prev, cur := grid[i-1], grid[i]
		var held, moved float64
		for _, instr := range ledger.Instruments() {
			q := ledger.QuantityAt(instr, prev)
			if q <= 0 {
				continue
			}
			series := prices[instr]
			pPrev, okPrev := series.At(prev)
			pCur, okCur := series.At(cur)
			if !okPrev || !okCur {
				continue
			}
			held += q * pPrev
			moved += q * pCur
		}
		curve[i] = curve[i-1]
		if held > 0 {
			curve[i] *= moved / held
		}
	}
	return curve
}
