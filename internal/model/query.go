package model

import (
	"time"

	"pledgetally/internal/daterange"
)

// Query is what a message source is asked for. Sources may over-match;
// eligibility is decided afterwards.
type Query struct {
	Recipient string
	Range     daterange.Range
	Cutoff    *time.Time
}
