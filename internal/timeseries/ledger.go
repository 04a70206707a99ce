package timeseries

import (
	"sort"
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// Ledger replays trade events to answer quantity-at-time queries.
type Ledger struct {
	instruments []string
	byInstr     map[string]*replay
	start       time.Time
}

// replay holds one instrument's event days with running quantity totals.
type replay struct {
	days       []time.Time
	cumulative []float64
}

// NewLedger indexes events by instrument. Events may arrive in any order.
func NewLedger(events []model.TradeEvent) *Ledger {
	grouped := make(map[string][]model.TradeEvent)
	l := &Ledger{byInstr: make(map[string]*replay)}

	for _, ev := range events {
		grouped[ev.Instrument] = append(grouped[ev.Instrument], ev)
		if day := model.TruncateDay(ev.Timestamp); l.start.IsZero() || day.Before(l.start) {
			l.start = day
		}
	}

	for instr, evs := range grouped {
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].Timestamp.Before(evs[j].Timestamp) })
		r := &replay{
			days:       make([]time.Time, len(evs)),
			cumulative: make([]float64, len(evs)),
		}
		total := 0.0
		for i, ev := range evs {
			total += ev.QuantityDelta
			r.days[i] = model.TruncateDay(ev.Timestamp)
			r.cumulative[i] = total
		}
		l.byInstr[instr] = r
		l.instruments = append(l.instruments, instr)
	}
	sort.Strings(l.instruments)
	return l
}

// Instruments returns every instrument in the ledger, sorted.
func (l *Ledger) Instruments() []string {
	return l.instruments
}

// Start returns the day of the earliest event. ok is false for an empty ledger.
func (l *Ledger) Start() (time.Time, bool) {
	return l.start, !l.start.IsZero()
}

// QuantityAt sums the signed deltas of instrument's events on or before t's day.
func (l *Ledger) QuantityAt(instrument string, t time.Time) float64 {
	r, ok := l.byInstr[instrument]
	if !ok {
		return 0
	}
	day := model.TruncateDay(t)
	n := sort.Search(len(r.days), func(i int) bool { return r.days[i].After(day) })
	if n == 0 {
		return 0
	}
	return r.cumulative[n-1]
}

// MinQuantity returns the lowest end-of-day quantity of instrument across its
// events, or 0 when it has none.
func (l *Ledger) MinQuantity(instrument string) float64 {
	r, ok := l.byInstr[instrument]
	if !ok {
		return 0
	}
	lowest := 0.0
	for i, q := range r.cumulative {
		if i+1 < len(r.days) && r.days[i+1].Equal(r.days[i]) {
			continue
		}
		if q < lowest {
			lowest = q
		}
	}
	return lowest
}
