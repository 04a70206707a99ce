package timeseries

import (
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// keepMonths lists, per coarse granularity, the months whose month-end points
// survive reduction of the monthly grid.
var keepMonths = map[model.Granularity]map[time.Month]bool{
	model.GranularityQuarterly:  {time.March: true, time.June: true, time.September: true, time.December: true},
	model.GranularitySemiannual: {time.June: true, time.December: true},
	model.GranularityAnnual:     {time.December: true},
}

// MondayOf returns midnight UTC of the Monday of t's ISO week.
func MondayOf(t time.Time) time.Time {
	d := model.TruncateDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// MonthEnd returns midnight UTC of the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	d := model.TruncateDay(t)
	return time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// Grid builds the base time grid between start and end. Weekly grids step
// seven days from the Monday of start's week while not after end. Every other
// granularity uses the month-end of each month from start's month to end's
// month; coarser granularities are applied afterwards with Reduce.
func Grid(g model.Granularity, start, end time.Time) []time.Time {
	start, end = model.TruncateDay(start), model.TruncateDay(end)
	if end.Before(start) {
		return nil
	}

	var points []time.Time
	if g == model.GranularityWeekly {
		for p := MondayOf(start); !p.After(end); p = p.AddDate(0, 0, 7) {
			points = append(points, p)
		}
		return points
	}

	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		points = append(points, MonthEnd(m))
	}
	return points
}

// Reduce returns the indexes of grid points kept at granularity g. Weekly and
// monthly keep everything; coarser grids keep their boundary months and always
// the final point.
func Reduce(g model.Granularity, points []time.Time) []int {
	months, coarse := keepMonths[g]
	idxs := make([]int, 0, len(points))
	for i, p := range points {
		if !coarse || months[p.Month()] || i == len(points)-1 {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// Labels formats grid points: YYYY-MM-DD for weekly grids, YYYY-MM otherwise.
func Labels(g model.Granularity, points []time.Time) []string {
	layout := "2006-01"
	if g == model.GranularityWeekly {
		layout = time.DateOnly
	}
	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = p.Format(layout)
	}
	return labels
}

func pick[T any](values []T, idxs []int) []T {
	out := make([]T, len(idxs))
	for i, idx := range idxs {
		out[i] = values[idx]
	}
	return out
}
