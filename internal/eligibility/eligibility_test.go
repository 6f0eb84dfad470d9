package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pledgetally/internal/model"
)

const dan = "dan@example.com"

var cutoff = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

func sent(from string, date time.Time, to ...string) model.RawMessage {
	return model.RawMessage{From: from, To: to, Date: date}
}

func TestIsEligible_Cutoff(t *testing.T) {
	atCutoff := sent("me@example.com", cutoff, dan)
	after := sent("me@example.com", cutoff.Add(time.Hour), dan)
	before := sent("me@example.com", cutoff.AddDate(0, 0, -1), dan)

	assert.True(t, IsEligible(atCutoff, dan, &cutoff, "me@example.com"))
	assert.True(t, IsEligible(after, dan, &cutoff, "me@example.com"))
	assert.False(t, IsEligible(before, dan, &cutoff, "me@example.com"))
	assert.True(t, IsEligible(before, dan, nil, "me@example.com"))
}

func TestIsEligible_OperatorKnown(t *testing.T) {
	mine := sent("Me <ME@example.com>", cutoff, "Dan <dan@example.com>")
	theirs := sent("Dan <dan@example.com>", cutoff, "me@example.com")
	other := sent("someone@else.org", cutoff, dan)

	assert.True(t, IsEligible(mine, dan, nil, "me@example.com"))
	assert.False(t, IsEligible(theirs, dan, nil, "me@example.com"))
	assert.False(t, IsEligible(other, dan, nil, "me@example.com"))
}

func TestIsEligible_OperatorUnknown(t *testing.T) {
	received := sent("Dan <dan@example.com>", cutoff, "me@example.com", dan)
	mine := sent("me@example.com", cutoff, dan)

	assert.False(t, IsEligible(received, dan, nil, ""))
	assert.True(t, IsEligible(mine, dan, nil, ""))
}

func TestIsEligible_RecipientHeaders(t *testing.T) {
	cc := model.RawMessage{From: "me@example.com", To: []string{"team@example.com"}, Cc: []string{"DAN@Example.com"}, Date: cutoff}
	bcc := model.RawMessage{From: "me@example.com", Bcc: []string{dan}, Date: cutoff}
	none := model.RawMessage{From: "me@example.com", To: []string{"team@example.com"}, Date: cutoff}

	assert.True(t, IsEligible(cc, dan, nil, "me@example.com"))
	assert.True(t, IsEligible(bcc, dan, nil, "me@example.com"))
	assert.False(t, IsEligible(none, dan, nil, "me@example.com"))
}

func TestIsEligible_EmptyRecipient(t *testing.T) {
	assert.False(t, IsEligible(sent("me@example.com", cutoff, dan), "", nil, ""))
}

func TestFilterKeepsOrder(t *testing.T) {
	msgs := []model.RawMessage{
		{ID: "a", From: "me@example.com", To: []string{dan}, Date: cutoff},
		{ID: "b", From: dan, To: []string{"me@example.com"}, Date: cutoff},
		{ID: "c", From: "me@example.com", To: []string{dan}, Date: cutoff.Add(time.Minute)},
	}
	got := Filter(msgs, dan, &cutoff, "me@example.com")
	if assert.Len(t, got, 2) {
		assert.Equal(t, "a", got[0].ID)
		assert.Equal(t, "c", got[1].ID)
	}
}
