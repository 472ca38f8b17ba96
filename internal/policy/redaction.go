// Package policy scrubs sensitive values from text before it leaves the
// process in logs.
package policy

import "regexp"

type redactionRule struct {
	pattern *regexp.Regexp
	marker  string
}

// Order matters: keys and card numbers are masked before the looser phone
// pattern can claim their digits.
var redactionRules = []redactionRule{
	{regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`), "[REDACTED_API_KEY]"},
	{regexp.MustCompile(`(?i)\b(bearer\s+|key=|api[_-]?key[=:]\s*)[A-Za-z0-9._\-]{16,}`), "$1[REDACTED_TOKEN]"},
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]"},
}

// Redact masks credentials and common PII in input. changed reports whether
// anything was replaced.
func Redact(input string) (redacted string, changed bool) {
	out := input
	for _, rule := range redactionRules {
		next := rule.pattern.ReplaceAllString(out, rule.marker)
		changed = changed || next != out
		out = next
	}
	return out, changed
}
