package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/lo"

	"pledgetally/internal/model"
)

// UpsertMessages caches fetched messages for a source so later scans can
// skip refetching their bodies.
func (s *SQLiteStore) UpsertMessages(ctx context.Context, source string, msgs []model.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, source, from_addr, to_addrs, cc_addrs, bcc_addrs, date_rfc3339, subject, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, id) DO UPDATE SET
			from_addr    = excluded.from_addr,
			to_addrs     = excluded.to_addrs,
			cc_addrs     = excluded.cc_addrs,
			bcc_addrs    = excluded.bcc_addrs,
			date_rfc3339 = excluded.date_rfc3339,
			subject      = excluded.subject,
			body         = excluded.body
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range msgs {
		_, err := stmt.ExecContext(ctx, m.ID, source, m.From,
			encodeList(m.To), encodeList(m.Cc), encodeList(m.Bcc),
			formatTime(m.Date), m.Subject, m.Body)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetMessagesByIDs returns the cached messages among ids, keyed by ID.
func (s *SQLiteStore) GetMessagesByIDs(ctx context.Context, source string, ids []string) (map[string]model.RawMessage, error) {
	out := make(map[string]model.RawMessage)
	// Stay well under SQLite's bound-parameter limit.
	for _, chunk := range lo.Chunk(ids, 500) {
		args := append([]any{source}, lo.ToAnySlice(chunk)...)
		rows, err := s.db.QueryContext(ctx,
			"SELECT id, from_addr, to_addrs, cc_addrs, bcc_addrs, date_rfc3339, subject, body FROM messages WHERE source = ? AND id IN ("+placeholders(len(chunk))+")",
			args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var m model.RawMessage
			var to, cc, bcc, date string
			if err := rows.Scan(&m.ID, &m.From, &to, &cc, &bcc, &date, &m.Subject, &m.Body); err != nil {
				rows.Close()
				return nil, err
			}
			m.To, m.Cc, m.Bcc = decodeList(to), decodeList(cc), decodeList(bcc)
			m.Date = parseTime(date)
			out[m.ID] = m
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) CountMessages(ctx context.Context, source string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages WHERE source = ?", source).Scan(&count)
	return count, err
}

func encodeList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeList(s string) []string {
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil || len(v) == 0 {
		return nil
	}
	return v
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
