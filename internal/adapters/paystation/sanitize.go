package paystation

import "strings"

// sanitizeText strips every character outside the gateway's documented
// allow-list (letters, digits, and @_ -.,()[]:;#+/|). Characters are removed,
// not escaped, matching what the gateway itself would do server-side.
func sanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("@_ -.,()[]:;#+/|", r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncate cuts s to at most n bytes. Applied after validation; an oversized
// field is shortened silently, never rejected.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
