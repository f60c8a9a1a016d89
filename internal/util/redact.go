package util

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>". Upstream SDK errors sometimes echo request
	// headers back in their messages.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that leak in error strings.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|gemini[_-]?api[_-]?key|x-goog-api-key)\b\s*[:=]\s*[^\s"'&]+`)

	// The Gemini REST API also accepts the key as a query parameter.
	keyParamRe = regexp.MustCompile(`(?i)([?&])key=[^\s"'&]+`)
)

// RedactSecrets removes obvious secret-bearing substrings from error/log
// strings. Safe to call on any message, including upstream error text.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = keyParamRe.ReplaceAllString(out, "${1}key=<redacted>")
	return strings.TrimSpace(out)
}
