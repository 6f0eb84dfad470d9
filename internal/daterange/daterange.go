// Package daterange parses relative range tokens such as "30d", "6m" and "1y".
package daterange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRange is returned for tokens that are not <integer><d|m|y>.
var ErrInvalidRange = errors.New("invalid date range")

var tokenRE = regexp.MustCompile(`^(\d+)([a-z])$`)

// Range is a parsed token. The zero Range has no cutoff.
type Range struct {
	Value int
	Unit  byte // 'd', 'm' or 'y'; 0 for an unbounded range
	token string
}

// Parse reads a range token. An empty token is an unbounded range.
func Parse(token string) (Range, error) {
	return parse(token, false)
}

// ParseLenient accepts an unknown unit letter and yields a range whose
// cutoff is the current instant.
func ParseLenient(token string) (Range, error) {
	return parse(token, true)
}

func parse(token string, lenient bool) (Range, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return Range{}, nil
	}
	m := tokenRE.FindStringSubmatch(t)
	if m == nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, token)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, token)
	}
	unit := m[2][0]
	switch unit {
	case 'd', 'm', 'y':
	default:
		if !lenient {
			return Range{}, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalidRange, string(unit), token)
		}
		n = 0
	}
	return Range{Value: n, Unit: unit, token: t}, nil
}

// Bounded reports whether the range produces a cutoff.
func (r Range) Bounded() bool { return r.Unit != 0 }

// Cutoff returns the earliest accepted timestamp relative to now, or nil for
// an unbounded range. Calendar arithmetic follows time.AddDate, so month and
// year steps normalize day-of-month overflow.
func (r Range) Cutoff(now time.Time) *time.Time {
	if !r.Bounded() {
		return nil
	}
	var c time.Time
	switch r.Unit {
	case 'd':
		c = now.AddDate(0, 0, -r.Value)
	case 'm':
		c = now.AddDate(0, -r.Value, 0)
	case 'y':
		c = now.AddDate(-r.Value, 0, 0)
	default:
		c = now
	}
	return &c
}

// GmailQuery renders the range as a Gmail newer_than operator.
func (r Range) GmailQuery() string {
	switch r.Unit {
	case 'd', 'm', 'y':
		return fmt.Sprintf("newer_than:%d%c", r.Value, r.Unit)
	}
	return ""
}

func (r Range) String() string { return r.token }
