// Package mbox reads messages from a local mbox export.
package mbox

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"pledgetally/internal/mailparse"
	"pledgetally/internal/model"
)

var escapedFrom = regexp.MustCompile(`^>+From `)

// Source serves messages from an mbox file.
type Source struct {
	path     string
	operator string
	log      zerolog.Logger
}

func New(path, operator string, log zerolog.Logger) *Source {
	return &Source{path: path, operator: operator, log: log}
}

func (s *Source) Name() string { return "mbox" }

// OperatorAddress returns the configured address; an mbox file has no
// notion of its owner.
func (s *Source) OperatorAddress(ctx context.Context) (string, error) {
	return s.operator, nil
}

// Search returns every parsable message in file order. Messages before the
// query cutoff are skipped early.
func (s *Source) Search(ctx context.Context, q model.Query) ([]model.RawMessage, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open mbox: %w", err)
	}
	defer f.Close()

	var out []model.RawMessage
	skipped := 0
	err = Split(f, func(idx int, raw []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := mailparse.Parse(raw)
		if err != nil {
			skipped++
			s.log.Debug().Err(err).Int("index", idx).Msg("skipping unparsable message")
			return nil
		}
		if msg.ID == "" {
			msg.ID = fmt.Sprintf("mbox-%d", idx)
		}
		if q.Cutoff != nil && !msg.Date.IsZero() && msg.Date.Before(*q.Cutoff) {
			return nil
		}
		out = append(out, msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.log.Warn().Int("count", skipped).Str("path", s.path).Msg("messages failed to parse")
	}
	return out, nil
}

// Split calls fn with each raw message in r, numbered from 1. The "From "
// separator line is dropped and mboxrd ">From " escapes are undone.
func Split(r io.Reader, fn func(idx int, raw []byte) error) error {
	br := bufio.NewReader(r)
	var buf bytes.Buffer
	idx := 0
	in := false
	flush := func() error {
		if !in {
			return nil
		}
		return fn(idx, buf.Bytes())
	}
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			switch {
			case strings.HasPrefix(line, "From "):
				if err := flush(); err != nil {
					return err
				}
				buf.Reset()
				in = true
				idx++
			case in:
				if escapedFrom.MatchString(line) {
					line = line[1:]
				}
				buf.WriteString(line)
			}
		}
		if err == io.EOF {
			return flush()
		}
		if err != nil {
			return fmt.Errorf("read mbox: %w", err)
		}
	}
}
