package util

import (
	"net/mail"
	"strings"

	"github.com/samber/lo"
)

// NormalizeAddress extracts and lowercases the address from a header value
// such as "Name <User@Example.COM>". For list-valued headers the first
// parsable entry wins. Returns "" when nothing parses.
func NormalizeAddress(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	addr, err := mail.ParseAddress(header)
	if err != nil || addr == nil {
		// Some headers may be a list; try a crude fallback by splitting on comma.
		for _, p := range strings.Split(header, ",") {
			a, e := mail.ParseAddress(strings.TrimSpace(p))
			if e == nil && a != nil {
				addr = a
				break
			}
		}
		if addr == nil {
			return ""
		}
	}
	return strings.ToLower(strings.TrimSpace(addr.Address))
}

// NormalizeRecipient turns user input into the lowercase string matched
// against recipient headers. Full addresses with display names are reduced
// to the address; anything else (a bare domain, a partial local part) is
// kept as typed.
func NormalizeRecipient(input string) string {
	if a := NormalizeAddress(input); a != "" {
		return a
	}
	return strings.ToLower(strings.TrimSpace(input))
}

// SameAddress reports whether two header values name the same mailbox.
// Values that do not parse are compared as trimmed lowercase text.
func SameAddress(a, b string) bool {
	na, nb := NormalizeAddress(a), NormalizeAddress(b)
	if na == "" {
		na = strings.ToLower(strings.TrimSpace(a))
	}
	if nb == "" {
		nb = strings.ToLower(strings.TrimSpace(b))
	}
	return na != "" && na == nb
}

// JoinRecipients concatenates recipient lists into one lowercase string,
// skipping empty entries.
func JoinRecipients(lists ...[]string) string {
	all := lo.Compact(lo.Flatten(lists))
	return strings.ToLower(strings.Join(all, ", "))
}

// SplitAddressList splits a raw To/Cc/Bcc header into its entries.
func SplitAddressList(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	if list, err := mail.ParseAddressList(header); err == nil {
		return lo.Map(list, func(a *mail.Address, _ int) string { return a.String() })
	}
	parts := lo.Map(strings.Split(header, ","), func(p string, _ int) string { return strings.TrimSpace(p) })
	return lo.Compact(parts)
}
