package display

import (
	"fmt"
	"io"

	"pledgetally/internal/model"
)

// FieldStatus describes one field of a parsed record for diagnostics.
type FieldStatus struct {
	Name    string
	Matched bool
	Value   string
}

// Fields lists every recognized field of rec and whether it matched.
func Fields(rec *model.MetricsRecord) []FieldStatus {
	if rec == nil {
		rec = &model.MetricsRecord{}
	}
	return []FieldStatus{
		decimalField("sessionHours", rec.SessionHours, Hours),
		decimalField("scheduledHours", rec.ScheduledHours, Hours),
		decimalField("softPledges", rec.SoftPledges, Currency),
		decimalField("hardPledges", rec.HardPledges, Currency),
		decimalField("estimatedPledges", rec.EstimatedPledges, Currency),
		countField("numberOfPledges", rec.NumberOfPledges),
		countField("numberOfCalls", rec.NumberOfCalls),
		countField("numberOfPickups", rec.NumberOfPickups),
	}
}

func decimalField(name string, p *float64, format func(float64) string) FieldStatus {
	if p == nil {
		return FieldStatus{Name: name}
	}
	return FieldStatus{Name: name, Matched: true, Value: format(*p)}
}

func countField(name string, p *int64) FieldStatus {
	if p == nil {
		return FieldStatus{Name: name}
	}
	return FieldStatus{Name: name, Matched: true, Value: Count(*p)}
}

// WriteRecord prints per-field diagnostics for a parsed body. A nil record
// is reported as having no metrics.
func WriteRecord(w io.Writer, rec *model.MetricsRecord) error {
	if rec == nil {
		_, err := fmt.Fprintln(w, "no metrics found")
		return err
	}
	for _, f := range Fields(rec) {
		value := "(absent)"
		if f.Matched {
			value = f.Value
		}
		if _, err := fmt.Fprintf(w, "%-17s %s\n", f.Name+":", value); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d of 8 fields matched\n", rec.Count())
	return err
}
