// Package extract pulls numeric report fields out of loosely formatted
// email text.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind selects how a captured value is read.
type Kind int

const (
	Decimal Kind = iota
	Integer
)

const (
	decimalNumber = `\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`
	integerNumber = `\d{1,3}(?:,\d{3})+|\d+`

	// labelTail allows markup and one short parenthetical, as in
	// "Soft pledges (est.):", before the colon.
	labelTail = `[\s*_]*(?:\([^\d\n)]{0,20}\)[\s*_]*)?:`
	// noise never ends on a point, so ".50" is not read as 50.
	noise = `(?:[^\d\n]*?[^\d\n.])?`
	// pointValue reads a bare fraction such as "$.50". A point directly
	// after a letter ("approx.35") is not a fraction.
	pointValue = `(?:[^\d\n]*?[^\d\n.\pL])?(\.\d+)`
)

// FieldSpec is an ordered list of candidate patterns for one field. The
// first candidate that matches and parses wins.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Labels   []string
	patterns []*regexp.Regexp
}

// NewField compiles one candidate per label, in the order given. Label
// words match any run of whitespace, case-insensitively. Markup such as
// asterisks or a short parenthetical may sit between the label and its
// colon, and any non-digit noise on the same line may sit between the
// colon and the number.
func NewField(name string, kind Kind, labels ...string) FieldSpec {
	value := noise + `(` + decimalNumber + `)`
	if kind == Integer {
		value = noise + `(` + integerNumber + `)`
	} else {
		value = `(?:` + pointValue + `|` + value + `)`
	}
	f := FieldSpec{Name: name, Kind: kind, Labels: labels}
	for _, l := range labels {
		expr := `(?i)\b` + labelExpr(l) + labelTail + value
		f.patterns = append(f.patterns, regexp.MustCompile(expr))
	}
	return f
}

// captured returns the matched number from whichever value group fired.
func captured(m []string) string {
	for i := len(m) - 1; i > 0; i-- {
		if m[i] != "" {
			return m[i]
		}
	}
	return ""
}

func labelExpr(label string) string {
	words := strings.Fields(label)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

// ExtractDecimal returns the field's value, or nil when no candidate
// matched.
func ExtractDecimal(text string, f FieldSpec) *float64 {
	for _, re := range f.patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(stripGrouping(captured(m)), 64)
		if err != nil {
			continue
		}
		return &v
	}
	return nil
}

// ExtractInteger is ExtractDecimal for whole-number fields.
func ExtractInteger(text string, f FieldSpec) *int64 {
	for _, re := range f.patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(stripGrouping(captured(m)), 10, 64)
		if err != nil {
			continue
		}
		return &v
	}
	return nil
}

func stripGrouping(s string) string {
	return strings.ReplaceAll(s, ",", "")
}
