// Package aggregate folds parsed report bodies into totals and ratios.
package aggregate

import "pledgetally/internal/model"

// ParseFunc extracts a record from a message body, returning nil when the
// body holds no recognizable fields.
type ParseFunc func(body string) *model.MetricsRecord

// Result is the outcome of one aggregation pass.
type Result struct {
	Totals            model.Values
	Derived           model.Derived
	Rows              []model.DetailRow
	EmailsFound       int
	EmailsWithMetrics int
}

// Aggregate parses every message in order. Each message yields one detail
// row; only messages with at least one field contribute to the totals.
func Aggregate(msgs []model.RawMessage, parse ParseFunc) Result {
	res := Result{Rows: make([]model.DetailRow, 0, len(msgs))}
	for _, m := range msgs {
		res.EmailsFound++
		rec := parse(m.Body)
		row := model.DetailRow{
			MessageID: m.ID,
			Date:      m.Date,
			Subject:   m.Subject,
			Values:    rec.Values(),
			Record:    rec,
		}
		if rec != nil {
			res.EmailsWithMetrics++
			res.Totals.Add(row.Values)
		}
		res.Rows = append(res.Rows, row)
	}
	res.Derived = Derive(res.Totals)
	return res
}

// Derive computes the ratios for a set of totals. A zero divisor yields 0.
func Derive(t model.Values) model.Derived {
	var d model.Derived
	if t.NumberOfCalls > 0 {
		d.PickupRate = float64(t.NumberOfPickups) / float64(t.NumberOfCalls) * 100
	}
	if t.NumberOfPledges > 0 {
		d.AvgPledgeAmount = t.EstimatedPledges / float64(t.NumberOfPledges)
	}
	if t.SessionHours > 0 {
		d.CallsPerHour = float64(t.NumberOfCalls) / t.SessionHours
	}
	return d
}
