package relay

import "regexp"

// Mass-mention tokens are defused once, before fan-out, not per-destination.
// A zero-width space after '@' keeps the literal text readable without
// triggering the platform's notification behavior; role-mention tokens are
// replaced with a plain label. Sanitize is idempotent.

const zeroWidthSpace = "​"

var (
	everyonePattern = regexp.MustCompile(`(?i)@everyone`)
	herePattern     = regexp.MustCompile(`(?i)@here`)
	rolePattern     = regexp.MustCompile(`<@&\d+>`)
)

func Sanitize(text string) string {
	text = everyonePattern.ReplaceAllStringFunc(text, defuseMention)
	text = herePattern.ReplaceAllStringFunc(text, defuseMention)
	text = rolePattern.ReplaceAllLiteralString(text, "@role")
	return text
}

func defuseMention(m string) string {
	// m always starts with '@'; keep the original casing of the rest.
	return "@" + zeroWidthSpace + m[1:]
}
