package render

import (
	"fmt"
	"html/template"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// richPolicy allows the markup rich outputs legitimately produce (tables,
// styled spans, data-URI images) while stripping script tags, inline event
// handlers, and javascript: URIs.
var richPolicy = buildRichPolicy()

func buildRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowTables()
	p.AllowAttrs("style").OnElements("span", "div", "table", "thead", "tbody", "tr", "td", "th", "caption")
	p.AllowAttrs("class").Globally()
	p.AllowDataURIImages()
	return p
}

// SanitizeHTML cleans untrusted non-script-bearing HTML for inline embedding.
func SanitizeHTML(raw string) template.HTML {
	return template.HTML(richPolicy.Sanitize(raw))
}

var scriptRe = regexp.MustCompile(`(?i)<\s*script\b`)

// ScriptBearing reports whether raw HTML carries executable script and must
// therefore be sandboxed rather than sanitized.
func ScriptBearing(raw string) bool {
	return scriptRe.MatchString(raw)
}

// SandboxHTML isolates script-bearing HTML in a sandboxed iframe: scripting
// is allowed inside the frame, same-origin access is denied.
func SandboxHTML(raw string) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<iframe class="output-sandbox" sandbox="allow-scripts" srcdoc="%s"></iframe>`,
		template.HTMLEscapeString(raw),
	))
}
