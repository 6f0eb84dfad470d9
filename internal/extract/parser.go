package extract

import (
	"regexp"
	"strconv"
	"strings"

	"pledgetally/internal/model"
)

var spaces = strings.NewReplacer("\u00a0", " ", "\u2007", " ", "\u202f", " ")

var (
	sessionLine     = regexp.MustCompile(`(?i)\bsession\s+length[\s*_]*:([^\n]*)`)
	sessionFallback = regexp.MustCompile(`(?i)\bsession\s+length[^\d]{0,40}?(\d+(?:\.\d+)?|\.\d+)\s*(?:hours?|hrs?)\b`)
	numberToken     = regexp.MustCompile(`\d+(?:\.\d+)?|\.\d+`)
	parenNumber     = regexp.MustCompile(`\([^\d)]*?(\d+(?:\.\d+)?|\.\d+)`)
)

// Parse extracts every known field from a report body. It returns nil when
// nothing matched.
func Parse(body string) *model.MetricsRecord {
	text := spaces.Replace(body)

	var rec model.MetricsRecord
	rec.SessionHours, rec.ScheduledHours = sessionLength(text)
	rec.SoftPledges = ExtractDecimal(text, SoftPledges)
	rec.HardPledges = ExtractDecimal(text, HardPledges)
	rec.EstimatedPledges = ExtractDecimal(text, EstimatedPledges)
	rec.NumberOfPledges = ExtractInteger(text, NumberOfPledges)
	rec.NumberOfCalls = ExtractInteger(text, NumberOfCalls)
	rec.NumberOfPickups = ExtractInteger(text, NumberOfPickups)

	if rec.Count() == 0 {
		return nil
	}
	return &rec
}

// sessionLength reads "Session length:" lines. The first number on the line
// is the session length; a parenthesized number after it is the scheduled
// length. Without a colon-labeled line, a value followed by an hour unit is
// accepted instead.
func sessionLength(text string) (session, scheduled *float64) {
	if m := sessionLine.FindStringSubmatch(text); m != nil {
		line := m[1]
		loc := numberToken.FindStringIndex(line)
		if loc == nil {
			return nil, nil
		}
		session = parseFloat(line[loc[0]:loc[1]])
		if pm := parenNumber.FindStringSubmatch(line[loc[1]:]); pm != nil {
			scheduled = parseFloat(pm[1])
		}
		return session, scheduled
	}
	if m := sessionFallback.FindStringSubmatch(text); m != nil {
		return parseFloat(m[1]), nil
	}
	return nil, nil
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
