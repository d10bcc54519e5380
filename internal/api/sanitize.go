package api

import "strings"

// sanitizeLog neutralizes a request-derived string before it reaches a
// log line. Newlines and other control characters are stripped so a
// crafted value cannot forge extra log entries, and the result is
// capped to keep single entries bounded.
func sanitizeLog(s string) string {
	const maxLen = 200

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7F:
			// drop other control characters
		default:
			b.WriteRune(r)
		}
	}

	out := b.String()
	if len(out) > maxLen {
		out = out[:maxLen] + "..."
	}
	return out
}
