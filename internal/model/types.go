package model

import "time"

// RawMessage is one candidate message as supplied by a message source.
type RawMessage struct {
	ID      string
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Date    time.Time
	Subject string
	Body    string // plain text; HTML-only messages are converted upstream
}

// MetricsRecord holds the fields recovered from a single report body.
// A nil pointer means the field's pattern did not match.
type MetricsRecord struct {
	SessionHours     *float64
	ScheduledHours   *float64
	SoftPledges      *float64
	HardPledges      *float64
	EstimatedPledges *float64
	NumberOfPledges  *int64
	NumberOfCalls    *int64
	NumberOfPickups  *int64
}

// Count returns how many fields are populated.
func (r *MetricsRecord) Count() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, f := range []*float64{r.SessionHours, r.ScheduledHours, r.SoftPledges, r.HardPledges, r.EstimatedPledges} {
		if f != nil {
			n++
		}
	}
	for _, f := range []*int64{r.NumberOfPledges, r.NumberOfCalls, r.NumberOfPickups} {
		if f != nil {
			n++
		}
	}
	return n
}

// Values returns the record with absent fields rendered as zero.
func (r *MetricsRecord) Values() Values {
	var v Values
	if r == nil {
		return v
	}
	v.SessionHours = deref(r.SessionHours)
	v.ScheduledHours = deref(r.ScheduledHours)
	v.SoftPledges = deref(r.SoftPledges)
	v.HardPledges = deref(r.HardPledges)
	v.EstimatedPledges = deref(r.EstimatedPledges)
	v.NumberOfPledges = deref(r.NumberOfPledges)
	v.NumberOfCalls = deref(r.NumberOfCalls)
	v.NumberOfPickups = deref(r.NumberOfPickups)
	return v
}

func deref[T float64 | int64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}

// Values is a fully populated metric set. It is used both for per-message
// detail rows and for the running totals of a scan.
type Values struct {
	SessionHours     float64 `json:"sessionHours"`
	ScheduledHours   float64 `json:"scheduledHours"`
	SoftPledges      float64 `json:"softPledges"`
	HardPledges      float64 `json:"hardPledges"`
	EstimatedPledges float64 `json:"estimatedPledges"`
	NumberOfPledges  int64   `json:"numberOfPledges"`
	NumberOfCalls    int64   `json:"numberOfCalls"`
	NumberOfPickups  int64   `json:"numberOfPickups"`
}

// Add folds another value set into v.
func (v *Values) Add(o Values) {
	v.SessionHours += o.SessionHours
	v.ScheduledHours += o.ScheduledHours
	v.SoftPledges += o.SoftPledges
	v.HardPledges += o.HardPledges
	v.EstimatedPledges += o.EstimatedPledges
	v.NumberOfPledges += o.NumberOfPledges
	v.NumberOfCalls += o.NumberOfCalls
	v.NumberOfPickups += o.NumberOfPickups
}

// Derived holds ratios computed from final totals. Each is 0 when its
// divisor is 0.
type Derived struct {
	PickupRate      float64 `json:"pickupRate"`
	AvgPledgeAmount float64 `json:"avgPledgeAmount"`
	CallsPerHour    float64 `json:"callsPerHour"`
}

// DetailRow is the per-message line of a report.
type DetailRow struct {
	MessageID string         `json:"messageId"`
	Date      time.Time      `json:"date"`
	Subject   string         `json:"subject"`
	Values    Values         `json:"values"`
	Record    *MetricsRecord `json:"-"`
}

// Matched reports whether any field was extracted for the row.
func (d DetailRow) Matched() bool { return d.Record != nil }

// Report is the outcome of one scan.
type Report struct {
	ID                string      `json:"id"`
	Source            string      `json:"source"`
	Recipient         string      `json:"recipient"`
	RangeToken        string      `json:"range"`
	Cutoff            *time.Time  `json:"cutoff,omitempty"`
	GeneratedAt       time.Time   `json:"generatedAt"`
	EmailsFound       int         `json:"emailsFound"`
	EmailsWithMetrics int         `json:"emailsWithMetrics"`
	Totals            Values      `json:"totals"`
	Derived           Derived     `json:"derived"`
	Rows              []DetailRow `json:"rows"`
}

// ReportSummary is a report header as listed from history.
type ReportSummary struct {
	ID                string
	Source            string
	Recipient         string
	RangeToken        string
	GeneratedAt       time.Time
	EmailsFound       int
	EmailsWithMetrics int
}
