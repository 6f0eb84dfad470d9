package mailparse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParse_PlainText(t *testing.T) {
	raw := crlf(`Message-Id: <abc@example.com>
From: Me <me@example.com>
To: Dan <dan@example.com>, team@example.com
Cc: ana@example.com
Date: Mon, 03 Jun 2024 18:00:00 +0000
Subject: Monday calls
Content-Type: text/plain; charset=utf-8

Session length: 2 hours
Number of calls: 20
`)
	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc@example.com", msg.ID)
	assert.Equal(t, "Monday calls", msg.Subject)
	assert.Contains(t, msg.From, "me@example.com")
	require.Len(t, msg.To, 2)
	assert.Contains(t, msg.To[0], "dan@example.com")
	assert.Equal(t, []string{"<ana@example.com>"}, msg.Cc)
	assert.Nil(t, msg.Bcc)
	assert.True(t, msg.Date.Equal(time.Date(2024, time.June, 3, 18, 0, 0, 0, time.UTC)))
	assert.Contains(t, msg.Body, "Number of calls: 20")
}

func TestParse_MultipartPrefersPlain(t *testing.T) {
	raw := crlf(`From: me@example.com
To: dan@example.com
Subject: =?utf-8?q?Caf=C3=A9_night?=
Date: Tue, 04 Jun 2024 18:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary=XYZ

--XYZ
Content-Type: text/html; charset=utf-8

<p><b>Calls:</b> 99</p>
--XYZ
Content-Type: text/plain; charset=utf-8

Calls: 12
--XYZ--
`)
	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Café night", msg.Subject)
	assert.Contains(t, msg.Body, "Calls: 12")
	assert.NotContains(t, msg.Body, "99")
}

func TestParse_HTMLOnly(t *testing.T) {
	raw := crlf(`From: me@example.com
To: dan@example.com
Subject: html
Content-Type: text/html; charset=utf-8

<div>Number of pickups: <strong>7</strong></div><a href="https://x.example">link</a>
`)
	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Number of pickups:")
	assert.Contains(t, msg.Body, "7")
	assert.NotContains(t, msg.Body, "<div>")
	assert.NotContains(t, msg.Body, "https://x.example")
}

func TestBodyText(t *testing.T) {
	assert.Equal(t, "plain", BodyText("plain", "<p>html</p>"))
	assert.Equal(t, "", BodyText("", ""))
	assert.Contains(t, BodyText("  ", "<p>html</p>"), "html")
}
