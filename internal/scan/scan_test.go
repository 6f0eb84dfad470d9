package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pledgetally/internal/daterange"
	"pledgetally/internal/model"
)

var now = time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	msgs     []model.RawMessage
	operator string
	opErr    error
	err      error
	query    model.Query
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Search(_ context.Context, q model.Query) ([]model.RawMessage, error) {
	f.query = q
	return f.msgs, f.err
}

func (f *fakeSource) OperatorAddress(context.Context) (string, error) {
	return f.operator, f.opErr
}

type fakeStore struct {
	saved    []*model.Report
	settings map[string]string
	saveErr  error
}

func (f *fakeStore) SaveReport(_ context.Context, r *model.Report) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeStore) SetSetting(_ context.Context, key, value string) error {
	if f.settings == nil {
		f.settings = map[string]string{}
	}
	f.settings[key] = value
	return nil
}

func mailbox() []model.RawMessage {
	day := now.AddDate(0, 0, -10)
	return []model.RawMessage{
		{
			ID: "m1", From: "Me <me@example.com>", To: []string{"Dan <dan@example.com>"}, Date: day, Subject: "one",
			Body: "Session length: 2 hours (2hrs)\nNumber of calls: 20\nNumber of pickups: 4\nTotal estimated pledges: $150\nTotal number of pledges: 2",
		},
		{
			ID: "reply", From: "Dan <dan@example.com>", To: []string{"me@example.com"}, Date: day, Subject: "Re: one",
			Body: "> Number of calls: 20",
		},
		{
			ID: "m2", From: "me@example.com", Cc: []string{"dan@example.com"}, Date: day.Add(time.Hour), Subject: "two",
			Body: "Session length: 1 hour\nNumber of calls: 10\nNumber of pickups: 2\nTotal estimated pledges: $100\nTotal number of pledges: 1",
		},
		{
			ID: "old", From: "me@example.com", To: []string{"dan@example.com"}, Date: now.AddDate(0, -2, 0), Subject: "old",
			Body: "Number of calls: 500",
		},
		{ID: "m3", From: "me@example.com", To: []string{"dan@example.com"}, Date: day.Add(2 * time.Hour), Subject: "three", Body: "Thanks!"},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	src := &fakeSource{msgs: mailbox(), operator: "me@example.com"}
	st := &fakeStore{}
	svc := NewService(src, st, zerolog.Nop(), Options{Now: func() time.Time { return now }})

	r, err := svc.Run(context.Background(), Request{Recipient: " Dan@Example.com ", Range: "30d"})
	require.NoError(t, err)

	assert.Equal(t, "dan@example.com", src.query.Recipient)
	require.NotNil(t, src.query.Cutoff)
	assert.True(t, src.query.Cutoff.Equal(now.AddDate(0, 0, -30)))

	assert.Equal(t, 3, r.EmailsFound)
	assert.Equal(t, 2, r.EmailsWithMetrics)
	assert.Equal(t, int64(30), r.Totals.NumberOfCalls)
	assert.Equal(t, int64(6), r.Totals.NumberOfPickups)
	assert.InDelta(t, 3.0, r.Totals.SessionHours, 1e-9)
	assert.InDelta(t, 20.0, r.Derived.PickupRate, 1e-9)
	assert.InDelta(t, 83.33, r.Derived.AvgPledgeAmount, 0.005)
	assert.InDelta(t, 10.0, r.Derived.CallsPerHour, 1e-9)
	require.Len(t, r.Rows, 3)
	assert.Equal(t, "m1", r.Rows[0].MessageID)
	assert.Equal(t, "m3", r.Rows[2].MessageID)

	assert.Equal(t, "fake", r.Source)
	assert.Equal(t, "30d", r.RangeToken)
	assert.NotEmpty(t, r.ID)
	require.Len(t, st.saved, 1)
	assert.Same(t, r, st.saved[0])
	assert.Equal(t, "dan@example.com", st.settings[SettingLastRecipient])
	assert.Equal(t, "30d", st.settings[SettingLastRange])
}

func TestRun_OperatorLookupFailureFallsBack(t *testing.T) {
	src := &fakeSource{msgs: mailbox(), opErr: errors.New("profile unavailable")}
	svc := NewService(src, nil, zerolog.Nop(), Options{Now: func() time.Time { return now }})

	r, err := svc.Run(context.Background(), Request{Recipient: "dan@example.com", Range: "30d"})
	require.NoError(t, err)
	// The reply is still excluded because its sender contains the recipient.
	assert.Equal(t, 3, r.EmailsFound)
}

func TestRun_OperatorOverride(t *testing.T) {
	src := &fakeSource{msgs: mailbox(), operator: "someone@else.org"}
	svc := NewService(src, nil, zerolog.Nop(), Options{Operator: "me@example.com", Now: func() time.Time { return now }})

	r, err := svc.Run(context.Background(), Request{Recipient: "dan@example.com", Range: "30d"})
	require.NoError(t, err)
	assert.Equal(t, 3, r.EmailsFound)
}

func TestRun_Validation(t *testing.T) {
	svc := NewService(&fakeSource{}, nil, zerolog.Nop(), Options{})

	_, err := svc.Run(context.Background(), Request{Recipient: "  ", Range: "30d"})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, PhaseValidate, se.Phase)
	assert.ErrorIs(t, err, ErrRecipientRequired)

	_, err = svc.Run(context.Background(), Request{Recipient: "dan@example.com", Range: "30w"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, PhaseValidate, se.Phase)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestRun_LenientRange(t *testing.T) {
	src := &fakeSource{msgs: mailbox(), operator: "me@example.com"}
	svc := NewService(src, nil, zerolog.Nop(), Options{LenientRange: true, Now: func() time.Time { return now }})

	r, err := svc.Run(context.Background(), Request{Recipient: "dan@example.com", Range: "30w"})
	require.NoError(t, err)
	// Cutoff is now, so everything sent earlier is excluded.
	assert.Equal(t, 0, r.EmailsFound)
	assert.Empty(t, r.Rows)
}

func TestRun_UnboundedRange(t *testing.T) {
	src := &fakeSource{msgs: mailbox(), operator: "me@example.com"}
	svc := NewService(src, nil, zerolog.Nop(), Options{Now: func() time.Time { return now }})

	r, err := svc.Run(context.Background(), Request{Recipient: "dan@example.com"})
	require.NoError(t, err)
	assert.Nil(t, r.Cutoff)
	assert.Equal(t, 4, r.EmailsFound)
	assert.Equal(t, int64(530), r.Totals.NumberOfCalls)
}

func TestRun_SearchFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("quota exceeded")}
	svc := NewService(src, nil, zerolog.Nop(), Options{})

	_, err := svc.Run(context.Background(), Request{Recipient: "dan@example.com", Range: "7d"})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, PhaseSearch, se.Phase)
	assert.EqualError(t, err, "search: quota exceeded")
}

func TestRun_SaveFailureStillReturnsReport(t *testing.T) {
	src := &fakeSource{msgs: mailbox(), operator: "me@example.com"}
	st := &fakeStore{saveErr: errors.New("disk full")}
	svc := NewService(src, st, zerolog.Nop(), Options{Now: func() time.Time { return now }})

	r, err := svc.Run(context.Background(), Request{Recipient: "dan@example.com", Range: "30d"})
	require.NoError(t, err)
	assert.Equal(t, 3, r.EmailsFound)
	assert.Empty(t, st.saved)
}
