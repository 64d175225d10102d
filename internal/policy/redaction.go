package policy

import "regexp"

type redaction struct {
	pattern *regexp.Regexp
	replace string
}

// Card runs before phone so long digit runs are not reported as phones.
var piiRedactions = []redaction{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]"},
}

var dsnPassword = regexp.MustCompile(`(://[^:/@\s]+:|^[^:/@\s]+:)[^@\s/]+@`)

// RedactPII masks contact and payment details in viewer-supplied text
// before it reaches the log.
func RedactPII(input string) (string, bool) {
	out := input
	changed := false
	for _, r := range piiRedactions {
		next := r.pattern.ReplaceAllString(out, r.replace)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// RedactDSN hides the password of a postgres URL or mysql DSN.
func RedactDSN(dsn string) string {
	return dsnPassword.ReplaceAllString(dsn, "${1}xxxxx@")
}
