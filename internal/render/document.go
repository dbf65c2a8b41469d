package render

import (
	"html/template"
	"log/slog"
	"strings"

	"github.com/justmytwospence/blog/internal/notebook"
)

// Document is a fully rendered notebook plus the client-local visibility
// state for its code cells. The state maps are seeded once at render time
// from the resolved cascade; document-wide toggles simply overwrite every
// entry.
type Document struct {
	Meta  notebook.Metadata
	Toc   []*notebook.TocEntry
	Cells []RenderedCell

	code        map[string]bool
	output      map[string]bool
	lineNumbers bool
}

// RenderedCell is one cell of the rendered document. Exactly one of
// Markdown or Code/Outputs is populated depending on the cell kind; raw
// cells are never present.
type RenderedCell struct {
	ID             string
	Kind           string
	Markdown       template.HTML
	Code           template.HTML
	CodeText       string
	Language       string
	Outputs        []RenderedOutput
	Visibility     notebook.Visibility
	ExecutionCount *int
}

// Renderer renders validated notebooks into Documents.
type Renderer struct {
	logger *slog.Logger
	router *Router
}

// NewRenderer creates a Renderer.
func NewRenderer(logger *slog.Logger) *Renderer {
	return &Renderer{logger: logger, router: NewRouter(logger)}
}

// Render produces the rendered document. Cells render in document order;
// within a cell the code section always precedes the output section. Every
// cell renders inside its own fault boundary so a failing cell cannot take
// its siblings down with it.
func (r *Renderer) Render(nb *notebook.Notebook, meta notebook.Metadata) *Document {
	doc := &Document{
		Meta:        meta,
		Toc:         notebook.LimitToc(notebook.BuildToc(nb.Cells), meta.Format.TocDepth),
		code:        make(map[string]bool),
		output:      make(map[string]bool),
		lineNumbers: meta.Format.CodeLineNumbers,
	}
	lang := nb.Language()

	for i := range nb.Cells {
		cell := &nb.Cells[i]
		id := cell.Identity(i)
		opts, src := cell.Options()
		if !notebook.Included(opts, meta.Execute) {
			continue
		}
		switch cell.Type {
		case notebook.CellRaw:
			// Raw cells render nothing; the first one may carry front matter
			// already consumed by the metadata extractor.
			continue
		case notebook.CellMarkdown:
			if i == 0 {
				// A first markdown cell may carry the front matter already
				// consumed by the metadata extractor; only the body is page
				// content.
				_, src = notebook.ParseFrontMatter(src)
				if strings.TrimSpace(src) == "" {
					continue
				}
			}
			index := i
			html := Capture(r.logger, ScopeCell, id, func() template.HTML {
				return RenderMarkdown(src, index)
			})
			doc.Cells = append(doc.Cells, RenderedCell{ID: id, Kind: cell.Type, Markdown: html})
		case notebook.CellCode:
			doc.Cells = append(doc.Cells, r.renderCodeCell(doc, cell, id, src, opts, meta, lang))
		}
	}
	return doc
}

func (r *Renderer) renderCodeCell(doc *Document, cell *notebook.Cell, id, src string, opts notebook.CellOptions, meta notebook.Metadata, lang string) RenderedCell {
	vis := notebook.Resolve(opts, meta.Execute, meta.Format)
	code := Capture(r.logger, ScopeCell, id, func() template.HTML {
		return Highlight(src, lang, vis.LineNumbers)
	})
	fig := FigureAttrs{
		Cap:    opts.FigCap,
		Alt:    opts.FigAlt,
		Width:  opts.FigWidth,
		Height: opts.FigHeight,
		Label:  opts.Label,
	}
	outputs := r.router.RenderOutputs(id, cell.Outputs,
		notebook.ShowWarnings(opts, meta.Execute),
		notebook.ShowErrors(opts, meta.Execute),
		fig)

	doc.code[id] = vis.ShowCode
	doc.output[id] = vis.ShowOutput

	return RenderedCell{
		ID:             id,
		Kind:           cell.Type,
		Code:           code,
		CodeText:       src,
		Language:       lang,
		Outputs:        outputs,
		Visibility:     vis,
		ExecutionCount: cell.ExecutionCount,
	}
}

// ShowCode reports whether the cell's code section is currently visible.
func (d *Document) ShowCode(id string) bool { return d.code[id] }

// ShowOutput reports whether the cell's output section is currently visible.
func (d *Document) ShowOutput(id string) bool { return d.output[id] }

// LineNumbers reports the document-wide line numbers toggle.
func (d *Document) LineNumbers() bool { return d.lineNumbers }

// ToggleCode flips one cell's code visibility.
func (d *Document) ToggleCode(id string) {
	if _, ok := d.code[id]; ok {
		d.code[id] = !d.code[id]
	}
}

// ToggleOutput flips one cell's output visibility.
func (d *Document) ToggleOutput(id string) {
	if _, ok := d.output[id]; ok {
		d.output[id] = !d.output[id]
	}
}

// SetAllCode overwrites every cell's code visibility with show.
func (d *Document) SetAllCode(show bool) {
	for id := range d.code {
		d.code[id] = show
	}
}

// SetAllOutput overwrites every cell's output visibility with show.
func (d *Document) SetAllOutput(show bool) {
	for id := range d.output {
		d.output[id] = show
	}
}

// SetLineNumbers sets the document-wide line numbers toggle and
// re-highlights every code cell so the rendered HTML reflects it.
func (d *Document) SetLineNumbers(on bool) {
	d.lineNumbers = on
	for i := range d.Cells {
		cell := &d.Cells[i]
		if cell.Kind != notebook.CellCode {
			continue
		}
		cell.Visibility.LineNumbers = on
		cell.Code = Highlight(cell.CodeText, cell.Language, on)
	}
}
