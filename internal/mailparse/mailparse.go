// Package mailparse turns raw RFC 5322 messages into model.RawMessage values.
package mailparse

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/jaytaylor/html2text"
	"github.com/samber/lo"

	// Register charset decoders (windows-1252, iso-8859-*, koi8-r, etc.)
	_ "github.com/emersion/go-message/charset"

	"pledgetally/internal/model"
)

var wordDecoder = &mime.WordDecoder{}

// Parse reads one message. The body is the first text/plain part, or the
// first text/html part converted to text when no plain part exists.
func Parse(raw []byte) (model.RawMessage, error) {
	var msg model.RawMessage
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return msg, fmt.Errorf("read message header: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	msg.ID = strings.Trim(h.Get("Message-Id"), "<> ")
	if d, err := h.Date(); err == nil {
		msg.Date = d
	}
	if s, err := h.Subject(); err == nil {
		msg.Subject = s
	} else {
		msg.Subject = decodeHeader(h.Get("Subject"))
	}
	msg.From = addressHeader(h, "From")
	msg.To = addressList(h, "To")
	msg.Cc = addressList(h, "Cc")
	msg.Bcc = addressList(h, "Bcc")

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep what was read so far; a broken trailing part should not
			// drop the message.
			break
		}
		ih, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := ih.ContentType()
		b, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}
		switch {
		case ct == "text/html" && html == "":
			html = string(b)
		case (ct == "text/plain" || ct == "") && plain == "":
			plain = string(b)
		}
	}
	msg.Body = BodyText(plain, html)
	return msg, nil
}

// BodyText prefers the plain body and falls back to converting HTML.
func BodyText(plain, html string) string {
	if strings.TrimSpace(plain) != "" {
		return plain
	}
	if html == "" {
		return ""
	}
	text, err := html2text.FromString(html, html2text.Options{OmitLinks: true, TextOnly: true})
	if err != nil {
		return html
	}
	return text
}

func addressHeader(h mail.Header, key string) string {
	list, err := h.AddressList(key)
	if err == nil && len(list) > 0 {
		return list[0].String()
	}
	return decodeHeader(h.Get(key))
}

func addressList(h mail.Header, key string) []string {
	list, err := h.AddressList(key)
	if err != nil {
		raw := decodeHeader(h.Get(key))
		if raw == "" {
			return nil
		}
		return []string{raw}
	}
	if len(list) == 0 {
		return nil
	}
	return lo.Map(list, func(a *mail.Address, _ int) string { return a.String() })
}

// decodeHeader decodes RFC 2047 encoded-words in a header value.
func decodeHeader(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}
