package render

import (
	"fmt"
	"html/template"
	"log/slog"
	"runtime/debug"
)

// Fault boundary scopes.
const (
	ScopeDocument = "document"
	ScopeCell     = "cell"
	ScopeOutput   = "output"
)

const maxPlaceholderDetail = 512

// Capture runs fn inside a fault boundary. A panic while rendering the
// subtree is logged with a structural stack trace and replaced by a
// bounded-size inline placeholder, so sibling subtrees keep rendering.
func Capture(logger *slog.Logger, scope, id string, fn func() template.HTML) (out template.HTML) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("render failure",
				slog.String("scope", scope),
				slog.String("id", id),
				slog.Any("error", rec),
				slog.String("stack", string(debug.Stack())))
			out = placeholder(scope, rec)
		}
	}()
	return fn()
}

// CaptureDocument is the outermost boundary: a panic escaping every cell and
// output boundary becomes an error the caller can answer with a retry
// affordance. This is a last-resort safety net; the validator is the primary
// gate for malformed input.
func CaptureDocument(logger *slog.Logger, id string, fn func() *Document) (doc *Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("render failure",
				slog.String("scope", ScopeDocument),
				slog.String("id", id),
				slog.Any("error", rec),
				slog.String("stack", string(debug.Stack())))
			doc = nil
			err = fmt.Errorf("render: document %s: %v", id, rec)
		}
	}()
	return fn(), nil
}

// placeholder builds the inline error notice with a show-details disclosure.
// Detail is size-capped so a pathological panic value cannot flood the page.
func placeholder(scope string, rec any) template.HTML {
	detail := fmt.Sprint(rec)
	if len(detail) > maxPlaceholderDetail {
		detail = detail[:maxPlaceholderDetail] + "..."
	}
	return template.HTML(fmt.Sprintf(
		`<div class="render-error render-error-%s"><p>This %s failed to render.</p>`+
			`<details><summary>Show details</summary><pre>%s</pre></details></div>`,
		scope, scope, template.HTMLEscapeString(detail)))
}
