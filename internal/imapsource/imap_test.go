package imapsource

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pledgetally/internal/model"
)

func TestCriteria(t *testing.T) {
	cutoff := time.Date(2024, time.May, 1, 15, 30, 0, 0, time.UTC)
	c := Criteria(model.Query{Recipient: " dan@example.com ", Cutoff: &cutoff})

	require.Len(t, c.Or, 1)
	assert.Equal(t, "To", c.Or[0][0].Header[0].Key)
	assert.Equal(t, "dan@example.com", c.Or[0][0].Header[0].Value)
	nested := c.Or[0][1]
	require.Len(t, nested.Or, 1)
	assert.Equal(t, "Cc", nested.Or[0][0].Header[0].Key)
	assert.Equal(t, "Bcc", nested.Or[0][1].Header[0].Key)
	assert.Equal(t, "dan@example.com", nested.Or[0][1].Header[0].Value)
	assert.True(t, c.Since.Equal(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCriteria_Unbounded(t *testing.T) {
	c := Criteria(model.Query{})
	assert.Empty(t, c.Or)
	assert.True(t, c.Since.IsZero())
}

func TestOperatorAddress(t *testing.T) {
	ctx := context.Background()

	op, err := New(Config{Username: "Me@Example.com"}, zerolog.Nop()).OperatorAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", op)

	op, _ = New(Config{Username: "me"}, zerolog.Nop()).OperatorAddress(ctx)
	assert.Equal(t, "", op)

	op, _ = New(Config{Username: "me", Operator: "me@example.org"}, zerolog.Nop()).OperatorAddress(ctx)
	assert.Equal(t, "me@example.org", op)
}

func TestNewDefaultsMailbox(t *testing.T) {
	s := New(Config{}, zerolog.Nop())
	assert.Equal(t, "Sent", s.cfg.Mailbox)
	assert.Equal(t, "imap", s.Name())
}
