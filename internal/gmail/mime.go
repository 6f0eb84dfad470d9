package gmail

import (
	"encoding/base64"
	"strings"

	gmailv1 "google.golang.org/api/gmail/v1"
)

// findBody walks a MIME part tree depth-first and returns the first body of
// the given type (base64url decoded). Direct children of the requested type
// are tried before descending, so multipart/alternative resolves to the
// matching alternative.
func findBody(part *gmailv1.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if strings.EqualFold(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		return decodeBase64URL(part.Body.Data)
	}
	for _, sub := range part.Parts {
		if strings.EqualFold(sub.MimeType, mimeType) {
			if body := findBody(sub, mimeType); body != "" {
				return body
			}
		}
	}
	for _, sub := range part.Parts {
		if body := findBody(sub, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func decodeBase64URL(data string) string {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		// Gmail uses unpadded base64url
		b, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(b)
}
