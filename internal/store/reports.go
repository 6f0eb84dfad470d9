package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pledgetally/internal/model"
)

// Presence bits for report_rows.present_mask, one per metric field.
const (
	hasSessionHours = 1 << iota
	hasScheduledHours
	hasSoftPledges
	hasHardPledges
	hasEstimatedPledges
	hasNumberOfPledges
	hasNumberOfCalls
	hasNumberOfPickups
)

// SaveReport writes a report and its detail rows in one transaction.
func (s *SQLiteStore) SaveReport(ctx context.Context, r *model.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cutoff := ""
	if r.Cutoff != nil {
		cutoff = formatTime(*r.Cutoff)
	}
	t, d := r.Totals, r.Derived
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, source, recipient, range_token, cutoff_rfc3339, generated_at,
			emails_found, emails_with_metrics,
			session_hours, scheduled_hours, soft_pledges, hard_pledges, estimated_pledges,
			number_of_pledges, number_of_calls, number_of_pickups,
			pickup_rate, avg_pledge_amount, calls_per_hour)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Source, r.Recipient, r.RangeToken, cutoff, formatTime(r.GeneratedAt),
		r.EmailsFound, r.EmailsWithMetrics,
		t.SessionHours, t.ScheduledHours, t.SoftPledges, t.HardPledges, t.EstimatedPledges,
		t.NumberOfPledges, t.NumberOfCalls, t.NumberOfPickups,
		d.PickupRate, d.AvgPledgeAmount, d.CallsPerHour)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO report_rows (report_id, position, message_id, date_rfc3339, subject, present_mask,
			session_hours, scheduled_hours, soft_pledges, hard_pledges, estimated_pledges,
			number_of_pledges, number_of_calls, number_of_pickups)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range r.Rows {
		v := row.Values
		_, err := stmt.ExecContext(ctx, r.ID, i, row.MessageID, formatTime(row.Date), row.Subject, presenceMask(row.Record),
			v.SessionHours, v.ScheduledHours, v.SoftPledges, v.HardPledges, v.EstimatedPledges,
			v.NumberOfPledges, v.NumberOfCalls, v.NumberOfPickups)
		if err != nil {
			return fmt.Errorf("insert report row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadReport returns a saved report with its rows in their original order.
func (s *SQLiteStore) LoadReport(ctx context.Context, id string) (*model.Report, error) {
	var r model.Report
	var cutoff, generated string
	t := &r.Totals
	d := &r.Derived
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, recipient, range_token, cutoff_rfc3339, generated_at,
			emails_found, emails_with_metrics,
			session_hours, scheduled_hours, soft_pledges, hard_pledges, estimated_pledges,
			number_of_pledges, number_of_calls, number_of_pickups,
			pickup_rate, avg_pledge_amount, calls_per_hour
		FROM reports WHERE id = ?
	`, id).Scan(&r.ID, &r.Source, &r.Recipient, &r.RangeToken, &cutoff, &generated,
		&r.EmailsFound, &r.EmailsWithMetrics,
		&t.SessionHours, &t.ScheduledHours, &t.SoftPledges, &t.HardPledges, &t.EstimatedPledges,
		&t.NumberOfPledges, &t.NumberOfCalls, &t.NumberOfPickups,
		&d.PickupRate, &d.AvgPledgeAmount, &d.CallsPerHour)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	r.GeneratedAt = parseTime(generated)
	if cutoff != "" {
		c := parseTime(cutoff)
		r.Cutoff = &c
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, date_rfc3339, subject, present_mask,
			session_hours, scheduled_hours, soft_pledges, hard_pledges, estimated_pledges,
			number_of_pledges, number_of_calls, number_of_pickups
		FROM report_rows WHERE report_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	r.Rows = []model.DetailRow{}
	for rows.Next() {
		var row model.DetailRow
		var date string
		var mask int
		v := &row.Values
		if err := rows.Scan(&row.MessageID, &date, &row.Subject, &mask,
			&v.SessionHours, &v.ScheduledHours, &v.SoftPledges, &v.HardPledges, &v.EstimatedPledges,
			&v.NumberOfPledges, &v.NumberOfCalls, &v.NumberOfPickups); err != nil {
			return nil, err
		}
		row.Date = parseTime(date)
		row.Record = recordFromMask(row.Values, mask)
		r.Rows = append(r.Rows, row)
	}
	return &r, rows.Err()
}

// ListReports returns report headers, newest first. limit <= 0 means all.
func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]model.ReportSummary, error) {
	q := `SELECT id, source, recipient, range_token, generated_at, emails_found, emails_with_metrics
		FROM reports ORDER BY generated_at DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ReportSummary
	for rows.Next() {
		var sum model.ReportSummary
		var generated string
		if err := rows.Scan(&sum.ID, &sum.Source, &sum.Recipient, &sum.RangeToken, &generated,
			&sum.EmailsFound, &sum.EmailsWithMetrics); err != nil {
			return nil, err
		}
		sum.GeneratedAt = parseTime(generated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func presenceMask(rec *model.MetricsRecord) int {
	if rec == nil {
		return 0
	}
	mask := 0
	set := func(present bool, bit int) {
		if present {
			mask |= bit
		}
	}
	set(rec.SessionHours != nil, hasSessionHours)
	set(rec.ScheduledHours != nil, hasScheduledHours)
	set(rec.SoftPledges != nil, hasSoftPledges)
	set(rec.HardPledges != nil, hasHardPledges)
	set(rec.EstimatedPledges != nil, hasEstimatedPledges)
	set(rec.NumberOfPledges != nil, hasNumberOfPledges)
	set(rec.NumberOfCalls != nil, hasNumberOfCalls)
	set(rec.NumberOfPickups != nil, hasNumberOfPickups)
	return mask
}

func recordFromMask(v model.Values, mask int) *model.MetricsRecord {
	if mask == 0 {
		return nil
	}
	f := func(bit int, x float64) *float64 {
		if mask&bit == 0 {
			return nil
		}
		return &x
	}
	i := func(bit int, x int64) *int64 {
		if mask&bit == 0 {
			return nil
		}
		return &x
	}
	return &model.MetricsRecord{
		SessionHours:     f(hasSessionHours, v.SessionHours),
		ScheduledHours:   f(hasScheduledHours, v.ScheduledHours),
		SoftPledges:      f(hasSoftPledges, v.SoftPledges),
		HardPledges:      f(hasHardPledges, v.HardPledges),
		EstimatedPledges: f(hasEstimatedPledges, v.EstimatedPledges),
		NumberOfPledges:  i(hasNumberOfPledges, v.NumberOfPledges),
		NumberOfCalls:    i(hasNumberOfCalls, v.NumberOfCalls),
		NumberOfPickups:  i(hasNumberOfPickups, v.NumberOfPickups),
	}
}
