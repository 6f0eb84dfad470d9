package mbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pledgetally/internal/model"
)

const sample = `From me@example.com Mon Jun 03 18:00:00 2024
Message-Id: <one@example.com>
From: me@example.com
To: dan@example.com
Subject: Monday
Date: Mon, 03 Jun 2024 18:00:00 +0000

Number of calls: 20
>From the phone bank
From me@example.com Tue Jun 04 18:00:00 2024
From: me@example.com
To: dan@example.com
Subject: Tuesday
Date: Tue, 04 Jun 2024 18:00:00 +0000

Number of calls: 10
`

func writeMbox(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sent.mbox")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestSplit(t *testing.T) {
	var got []string
	err := Split(strings.NewReader(sample), func(idx int, raw []byte) error {
		got = append(got, string(raw))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[0], "Message-Id:"))
	assert.Contains(t, got[0], "\nFrom the phone bank\n")
	assert.Contains(t, got[1], "Subject: Tuesday")
}

func TestSplit_NoSeparator(t *testing.T) {
	calls := 0
	err := Split(strings.NewReader("Subject: x\n\nbody\n"), func(int, []byte) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestSearch(t *testing.T) {
	src := New(writeMbox(t, sample), "me@example.com", zerolog.Nop())
	assert.Equal(t, "mbox", src.Name())

	op, err := src.OperatorAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", op)

	msgs, err := src.Search(context.Background(), model.Query{Recipient: "dan@example.com"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one@example.com", msgs[0].ID)
	assert.Equal(t, "mbox-2", msgs[1].ID)
	assert.Contains(t, msgs[1].Body, "Number of calls: 10")
}

func TestSearch_Cutoff(t *testing.T) {
	src := New(writeMbox(t, sample), "", zerolog.Nop())
	cutoff := time.Date(2024, time.June, 4, 0, 0, 0, 0, time.UTC)
	msgs, err := src.Search(context.Background(), model.Query{Cutoff: &cutoff})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Tuesday", msgs[0].Subject)
}

func TestSearch_MissingFile(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "none.mbox"), "", zerolog.Nop())
	_, err := src.Search(context.Background(), model.Query{})
	assert.Error(t, err)
}
