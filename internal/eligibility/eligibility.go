// Package eligibility decides which candidate messages count as reports sent
// by the operator to the target recipient.
package eligibility

import (
	"strings"
	"time"

	"pledgetally/internal/model"
	"pledgetally/internal/util"
)

// IsEligible applies the date, sender and recipient checks to one message.
//
// recipient must already be normalized (see util.NormalizeRecipient).
// cutoff may be nil for an unbounded range. operator is the authenticated
// user's own address, or "" when it could not be determined; in that case
// any message whose sender contains the recipient string is treated as a
// reply and rejected.
func IsEligible(msg model.RawMessage, recipient string, cutoff *time.Time, operator string) bool {
	if recipient == "" {
		return false
	}
	if cutoff != nil && msg.Date.Before(*cutoff) {
		return false
	}
	if operator != "" {
		if !util.SameAddress(msg.From, operator) {
			return false
		}
	} else if strings.Contains(strings.ToLower(msg.From), recipient) {
		return false
	}
	return strings.Contains(util.JoinRecipients(msg.To, msg.Cc, msg.Bcc), recipient)
}

// Filter returns the eligible messages in their original order.
func Filter(msgs []model.RawMessage, recipient string, cutoff *time.Time, operator string) []model.RawMessage {
	out := make([]model.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if IsEligible(m, recipient, cutoff, operator) {
			out = append(out, m)
		}
	}
	return out
}
