// Package render turns validated notebooks into HTML: MIME-type output
// routing, markdown and callout rendering, syntax highlighting, and the
// fault boundaries that keep one bad cell from blanking the page.
package render

import "regexp"

// ANSI CSI sequences as produced by IPython tracebacks.
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// StripANSI removes terminal color escape sequences. No color
// reinterpretation happens; tracebacks display as plain text.
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}
