package display

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"

	"pledgetally/internal/model"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

const dateLayout = "2006-01-02 15:04"

// CheckFormat validates an output format name.
func CheckFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatCSV:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteReport renders r in the given format.
func WriteReport(w io.Writer, r *model.Report, format string) error {
	switch format {
	case FormatText, "":
		return WriteText(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Stat is one labeled line of the report summary.
type Stat struct {
	Label string
	Value string
}

// Summary lists the report's counters, totals and derived ratios in display
// order.
func Summary(r *model.Report) []Stat {
	t, d := r.Totals, r.Derived
	return []Stat{
		{"Emails found", strconv.Itoa(r.EmailsFound)},
		{"Emails with metrics", strconv.Itoa(r.EmailsWithMetrics)},
		{"Session hours", Hours(t.SessionHours)},
		{"Scheduled hours", Hours(t.ScheduledHours)},
		{"Number of calls", Count(t.NumberOfCalls)},
		{"Number of pickups", Count(t.NumberOfPickups)},
		{"Pickup rate", Percent(d.PickupRate)},
		{"Calls per hour", Decimal(d.CallsPerHour)},
		{"Soft pledges", Currency(t.SoftPledges)},
		{"Hard pledges", Currency(t.HardPledges)},
		{"Estimated pledges", Currency(t.EstimatedPledges)},
		{"Number of pledges", Count(t.NumberOfPledges)},
		{"Avg pledge amount", Currency(d.AvgPledgeAmount)},
	}
}

// RowHeaders are the column titles of a detail row.
var RowHeaders = []string{"Date", "Subject", "Hours", "Sched", "Calls", "Pickups", "Soft", "Hard", "Estimated", "Pledges"}

// RowCells formats one detail row for a table.
func RowCells(row model.DetailRow) []string {
	v := row.Values
	return []string{
		row.Date.Local().Format(dateLayout),
		row.Subject,
		Hours(v.SessionHours),
		Hours(v.ScheduledHours),
		Count(v.NumberOfCalls),
		Count(v.NumberOfPickups),
		Currency(v.SoftPledges),
		Currency(v.HardPledges),
		Currency(v.EstimatedPledges),
		Count(v.NumberOfPledges),
	}
}

// WriteText renders a human-readable report.
func WriteText(w io.Writer, r *model.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Report %s\n", r.ID)
	fmt.Fprintf(&b, "Recipient: %s  Source: %s  Range: %s\n", r.Recipient, r.Source, rangeLabel(r))
	b.WriteString("\n")

	stats := Summary(r)
	width := lo.Max(lo.Map(stats, func(s Stat, _ int) int { return len(s.Label) }))
	for _, s := range stats {
		fmt.Fprintf(&b, "%-*s  %s\n", width, s.Label+":", s.Value)
	}

	if len(r.Rows) > 0 {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(RowHeaders...).
			Rows(lo.Map(r.Rows, func(row model.DetailRow, _ int) []string {
				cells := RowCells(row)
				if !row.Matched() {
					cells[1] += " (no metrics)"
				}
				return cells
			})...)
		b.WriteString("\n")
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func rangeLabel(r *model.Report) string {
	if r.Cutoff == nil {
		return "all time"
	}
	return fmt.Sprintf("%s (since %s)", r.RangeToken, r.Cutoff.Local().Format(dateLayout))
}

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, r *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var csvHeader = []string{
	"message_id", "date", "subject",
	"session_hours", "scheduled_hours", "soft_pledges", "hard_pledges", "estimated_pledges",
	"number_of_pledges", "number_of_calls", "number_of_pickups", "matched",
}

// WriteCSV writes one line per detail row followed by a TOTAL line.
func WriteCSV(w io.Writer, r *model.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range r.Rows {
		rec := append([]string{row.MessageID, row.Date.UTC().Format(time.RFC3339), row.Subject},
			valueCells(row.Values)...)
		rec = append(rec, strconv.FormatBool(row.Matched()))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	total := append([]string{"TOTAL", "", ""}, valueCells(r.Totals)...)
	total = append(total, "")
	if err := cw.Write(total); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func valueCells(v model.Values) []string {
	f := func(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }
	i := func(x int64) string { return strconv.FormatInt(x, 10) }
	return []string{
		f(v.SessionHours), f(v.ScheduledHours), f(v.SoftPledges), f(v.HardPledges), f(v.EstimatedPledges),
		i(v.NumberOfPledges), i(v.NumberOfCalls), i(v.NumberOfPickups),
	}
}

// WriteSummaries lists saved reports, newest first.
func WriteSummaries(w io.Writer, list []model.ReportSummary) error {
	if len(list) == 0 {
		_, err := io.WriteString(w, "No saved reports.\n")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Generated", "Source", "Recipient", "Range", "Found", "With metrics").
		Rows(lo.Map(list, func(s model.ReportSummary, _ int) []string {
			return []string{
				s.ID,
				s.GeneratedAt.Local().Format(dateLayout),
				s.Source,
				s.Recipient,
				lo.Ternary(s.RangeToken == "", "all", s.RangeToken),
				strconv.Itoa(s.EmailsFound),
				strconv.Itoa(s.EmailsWithMetrics),
			}
		})...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}
