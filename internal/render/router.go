package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/justmytwospence/blog/internal/notebook"
)

// Rich output MIME types with dedicated handling.
const (
	mimePNG         = "image/png"
	mimeJPEG        = "image/jpeg"
	mimeSVG         = "image/svg+xml"
	mimeHTML        = "text/html"
	mimeJSON        = "application/json"
	mimePlotly      = "application/vnd.plotly.v1+json"
	mimeWidgetState = "application/vnd.jupyter.widget-state+json"
	mimeWidgetView  = "application/vnd.jupyter.widget-view+json"
	mimePlain       = "text/plain"
)

// RenderedOutput is one routed output ready for the page template.
type RenderedOutput struct {
	Kind string
	HTML template.HTML
}

// FigureAttrs carries the owning cell's figure directives into image
// rendering.
type FigureAttrs struct {
	Cap    string
	Alt    string
	Width  string
	Height string
	Label  string
}

// Router dispatches outputs to type-specific renderers. The structural
// variants (stream, display, error) form a closed switch; the MIME layer is
// an ordered, open table of (predicate, renderer) pairs so new types slot in
// without touching the variant switch.
type Router struct {
	logger *slog.Logger
}

// NewRouter creates an output router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{logger: logger}
}

// RenderOutputs filters, merges, and routes a code cell's outputs. Each
// output renders inside its own fault boundary so one bad payload cannot
// take down its siblings.
func (r *Router) RenderOutputs(cellID string, outputs []notebook.Output, showWarnings, showErrors bool, fig FigureAttrs) []RenderedOutput {
	kept := filterOutputs(outputs, showWarnings, showErrors)
	merged := mergeAdjacentHTML(kept)
	rendered := make([]RenderedOutput, 0, len(merged))
	for i := range merged {
		out := &merged[i]
		kind := outputKind(out)
		html := Capture(r.logger, ScopeOutput, fmt.Sprintf("%s/%d", cellID, i), func() template.HTML {
			return r.renderOne(out, fig)
		})
		rendered = append(rendered, RenderedOutput{Kind: kind, HTML: html})
	}
	return rendered
}

// filterOutputs applies the cascade-resolved warning/error suppression:
// stderr streams drop when warnings are off, error outputs drop when errors
// are off. stdout streams always survive warning suppression.
func filterOutputs(outputs []notebook.Output, showWarnings, showErrors bool) []notebook.Output {
	kept := make([]notebook.Output, 0, len(outputs))
	for _, out := range outputs {
		if out.Type == notebook.OutputStream && out.Name == "stderr" && !showWarnings {
			continue
		}
		if out.Type == notebook.OutputError && !showErrors {
			continue
		}
		kept = append(kept, out)
	}
	return kept
}

// mergeAdjacentHTML concatenates neighboring display outputs that both carry
// an HTML payload into one output. This models the common two-step
// "load chart library, then render chart" pair that must appear as one unit.
func mergeAdjacentHTML(outputs []notebook.Output) []notebook.Output {
	merged := make([]notebook.Output, 0, len(outputs))
	for _, out := range outputs {
		if len(merged) > 0 {
			prev := &merged[len(merged)-1]
			if prev.IsDisplay() && out.IsDisplay() && prev.Data.Has(mimeHTML) && out.Data.Has(mimeHTML) {
				a, _ := prev.Data.Text(mimeHTML)
				b, _ := out.Data.Text(mimeHTML)
				joined, _ := json.Marshal(a + b)
				prev.Data = notebook.MIMEBundle{mimeHTML: joined}
				continue
			}
		}
		merged = append(merged, out)
	}
	return merged
}

func outputKind(out *notebook.Output) string {
	switch out.Type {
	case notebook.OutputStream:
		return "stream"
	case notebook.OutputError:
		return "error"
	default:
		return "display"
	}
}

func (r *Router) renderOne(out *notebook.Output, fig FigureAttrs) template.HTML {
	switch out.Type {
	case notebook.OutputStream:
		return renderStream(out)
	case notebook.OutputError:
		return renderError(out)
	default:
		return r.renderData(out.Data, fig)
	}
}

// mimeRoutes is the ordered dispatch table; the first matching entry wins.
var mimeRoutes = []struct {
	match  func(notebook.MIMEBundle) bool
	render func(*Router, notebook.MIMEBundle, FigureAttrs) template.HTML
}{
	{hasAny(mimePNG, mimeJPEG, mimeSVG), (*Router).renderImage},
	{hasAny(mimeHTML), (*Router).renderHTML},
	{hasAny(mimeJSON), (*Router).renderJSON},
	{hasAny(mimePlotly), (*Router).renderPlotly},
	{hasAny(mimeWidgetState, mimeWidgetView), (*Router).renderWidget},
	{hasAny(mimePlain), (*Router).renderPlain},
}

func hasAny(mimes ...string) func(notebook.MIMEBundle) bool {
	return func(b notebook.MIMEBundle) bool {
		for _, m := range mimes {
			if b.Has(m) {
				return true
			}
		}
		return false
	}
}

func (r *Router) renderData(b notebook.MIMEBundle, fig FigureAttrs) template.HTML {
	for _, route := range mimeRoutes {
		if route.match(b) {
			return route.render(r, b, fig)
		}
	}
	return renderUnsupported(b)
}

func (r *Router) renderImage(b notebook.MIMEBundle, fig FigureAttrs) template.HTML {
	var img string
	switch {
	case b.Has(mimeSVG):
		svg, _ := b.Text(mimeSVG)
		img = string(SanitizeHTML(svg))
	case b.Has(mimePNG):
		img = dataURIImg(mimePNG, b, fig)
	default:
		img = dataURIImg(mimeJPEG, b, fig)
	}
	if fig.Cap == "" {
		return template.HTML(img)
	}
	var attrs string
	if fig.Label != "" {
		attrs = fmt.Sprintf(` id=%q`, fig.Label)
	}
	return template.HTML(fmt.Sprintf(`<figure%s>%s<figcaption>%s</figcaption></figure>`,
		attrs, img, template.HTMLEscapeString(fig.Cap)))
}

func dataURIImg(mime string, b notebook.MIMEBundle, fig FigureAttrs) string {
	payload, _ := b.Text(mime)
	// Base64 payloads may carry embedded newlines.
	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, payload)
	alt := fig.Alt
	if alt == "" {
		alt = fig.Cap
	}
	var size string
	if fig.Width != "" {
		size += fmt.Sprintf(` width=%q`, fig.Width)
	}
	if fig.Height != "" {
		size += fmt.Sprintf(` height=%q`, fig.Height)
	}
	return fmt.Sprintf(`<img src="data:%s;base64,%s" alt=%q%s>`, mime, payload, alt, size)
}

// renderHTML routes rich HTML three ways: script-bearing payloads go into a
// sandboxed iframe, payloads carrying a parseable table go to the
// interactive table renderer, everything else is sanitized inline.
func (r *Router) renderHTML(b notebook.MIMEBundle, _ FigureAttrs) template.HTML {
	raw, _ := b.Text(mimeHTML)
	if ScriptBearing(raw) {
		return SandboxHTML(raw)
	}
	if strings.Contains(raw, "<table") {
		if t, err := ParseTable(raw); err == nil {
			return RenderTable(t, TableState{Sort: SortNone})
		}
	}
	return SanitizeHTML(raw)
}

func (r *Router) renderJSON(b notebook.MIMEBundle, _ FigureAttrs) template.HTML {
	raw, _ := b.Text(mimeJSON)
	var buf strings.Builder
	var pretty json.RawMessage
	if err := json.Unmarshal([]byte(raw), &pretty); err == nil {
		if indented, err := json.MarshalIndent(pretty, "", "  "); err == nil {
			raw = string(indented)
		}
	}
	buf.WriteString(`<pre class="output-json">`)
	buf.WriteString(template.HTMLEscapeString(raw))
	buf.WriteString("</pre>")
	return template.HTML(buf.String())
}

// renderPlotly emits the figure payload in a container the client-side
// plotting library picks up; the payload itself stays opaque.
func (r *Router) renderPlotly(b notebook.MIMEBundle, _ FigureAttrs) template.HTML {
	payload, _ := b.Text(mimePlotly)
	return template.HTML(fmt.Sprintf(
		`<div class="plotly-output"><script type="application/vnd.plotly.v1+json">%s</script></div>`,
		payload))
}

func (r *Router) renderWidget(b notebook.MIMEBundle, _ FigureAttrs) template.HTML {
	return template.HTML(`<div class="output-widget-notice">Interactive widget output is not available without a live kernel.</div>`)
}

func (r *Router) renderPlain(b notebook.MIMEBundle, _ FigureAttrs) template.HTML {
	text, _ := b.Text(mimePlain)
	return template.HTML(`<pre class="output-text">` + template.HTMLEscapeString(text) + "</pre>")
}

func renderUnsupported(b notebook.MIMEBundle) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<div class="output-unsupported">Unsupported output type. Available formats: %s</div>`,
		template.HTMLEscapeString(strings.Join(b.Keys(), ", "))))
}

// renderStream renders stdout/stderr text as preformatted blocks, styled
// distinctly per stream. Streams bypass MIME dispatch entirely.
func renderStream(out *notebook.Output) template.HTML {
	name := out.Name
	if name != "stderr" {
		name = "stdout"
	}
	return template.HTML(fmt.Sprintf(`<pre class="stream stream-%s">%s</pre>`,
		name, template.HTMLEscapeString(out.Text.String())))
}

// renderError renders an exception's name, value, and traceback with ANSI
// escape sequences stripped.
func renderError(out *notebook.Output) template.HTML {
	var b strings.Builder
	b.WriteString(`<div class="output-error-block">`)
	fmt.Fprintf(&b, `<span class="error-name">%s</span>: <span class="error-value">%s</span>`,
		template.HTMLEscapeString(out.EName), template.HTMLEscapeString(out.EValue))
	if len(out.Traceback) > 0 {
		lines := make([]string, len(out.Traceback))
		for i, l := range out.Traceback {
			lines[i] = StripANSI(l)
		}
		b.WriteString(`<pre class="error-traceback">`)
		b.WriteString(template.HTMLEscapeString(strings.Join(lines, "\n")))
		b.WriteString("</pre>")
	}
	b.WriteString("</div>")
	return template.HTML(b.String())
}
