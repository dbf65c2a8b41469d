package render

import (
	"strings"
	"testing"

	"github.com/justmytwospence/blog/internal/notebook"
)

func testMeta() notebook.Metadata {
	return notebook.Metadata{
		Title:   "Test Post",
		Format:  notebook.DefaultFormatOptions(),
		Execute: notebook.DefaultExecuteOptions(),
	}
}

func codeCell(src string) notebook.Cell {
	return notebook.Cell{Type: notebook.CellCode, Source: notebook.SourceText(src)}
}

func markdownCell(src string) notebook.Cell {
	return notebook.Cell{Type: notebook.CellMarkdown, Source: notebook.SourceText(src)}
}

func TestRender_CellOrderPreserved(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		markdownCell("# First"),
		codeCell("x = 1"),
		markdownCell("## Second"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	if len(doc.Cells) != 3 {
		t.Fatalf("len(cells) = %d, want 3", len(doc.Cells))
	}
	kinds := []string{doc.Cells[0].Kind, doc.Cells[1].Kind, doc.Cells[2].Kind}
	want := []string{notebook.CellMarkdown, notebook.CellCode, notebook.CellMarkdown}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("cell %d kind = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestRender_RawCellsRenderNothing(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		{Type: notebook.CellRaw, Source: "---\ntitle: x\n---"},
		codeCell("x = 1"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	if len(doc.Cells) != 1 {
		t.Fatalf("len(cells) = %d, want raw cell excluded", len(doc.Cells))
	}
	if doc.Cells[0].Kind != notebook.CellCode {
		t.Errorf("surviving cell kind = %q", doc.Cells[0].Kind)
	}
}

func TestRender_FirstMarkdownCellFrontMatterStripped(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		markdownCell("---\ntitle: Secret Title\nauthor: Someone\n---\n# Real Heading"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	if len(doc.Cells) != 1 {
		t.Fatalf("len(cells) = %d, want 1", len(doc.Cells))
	}
	html := string(doc.Cells[0].Markdown)
	if strings.Contains(html, "Secret Title") {
		t.Errorf("front matter leaked into page content: %q", html)
	}
	if !strings.Contains(html, "Real Heading") {
		t.Errorf("cell body lost: %q", html)
	}
}

func TestRender_FrontMatterOnlyMarkdownCellExcluded(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		markdownCell("---\ntitle: Only Metadata\n---\n"),
		codeCell("x = 1"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	if len(doc.Cells) != 1 {
		t.Fatalf("len(cells) = %d, want front-matter-only cell gone", len(doc.Cells))
	}
	if doc.Cells[0].Kind != notebook.CellCode {
		t.Errorf("surviving cell kind = %q", doc.Cells[0].Kind)
	}
}

func TestRender_LaterMarkdownCellDelimitersUntouched(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		markdownCell("# Intro"),
		markdownCell("---\nnot front matter\n\n---\n"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	if len(doc.Cells) != 2 {
		t.Fatalf("len(cells) = %d, want 2", len(doc.Cells))
	}
	if !strings.Contains(string(doc.Cells[1].Markdown), "not front matter") {
		t.Errorf("non-first cell content lost: %q", doc.Cells[1].Markdown)
	}
}

func TestRender_IncludeFalseExcluded(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		codeCell("#| include: false\nsetup()"),
		codeCell("x = 1"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	if len(doc.Cells) != 1 {
		t.Fatalf("len(cells) = %d, want excluded cell gone", len(doc.Cells))
	}
	if strings.Contains(doc.Cells[0].CodeText, "setup") {
		t.Errorf("excluded cell leaked: %q", doc.Cells[0].CodeText)
	}
}

func TestRender_VisibilitySeededFromCascade(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		codeCell("shown()"),
		codeCell("#| echo: false\nhidden()"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	if !doc.ShowCode(doc.Cells[0].ID) {
		t.Error("default cell should seed code visible")
	}
	if doc.ShowCode(doc.Cells[1].ID) {
		t.Error("echo: false cell should seed code hidden")
	}
	if !doc.ShowOutput(doc.Cells[1].ID) {
		t.Error("echo: false must not hide the output section")
	}
}

func TestRender_FoldHideSeedsCollapsed(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		codeCell("#| code-fold: hide\nlong_setup()"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	cell := doc.Cells[0]
	if doc.ShowCode(cell.ID) {
		t.Error("code-fold: hide should seed code hidden")
	}
	if !cell.Visibility.Collapsible {
		t.Error("explicit cell-level fold should be collapsible")
	}
}

func TestRender_DirectiveLinesStrippedFromCode(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		codeCell("#| echo: true\n#| fig-cap: A chart\nplot(df)"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	if strings.Contains(doc.Cells[0].CodeText, "#|") {
		t.Errorf("directive comments should be stripped: %q", doc.Cells[0].CodeText)
	}
	if !strings.Contains(doc.Cells[0].CodeText, "plot(df)") {
		t.Errorf("code body lost: %q", doc.Cells[0].CodeText)
	}
}

func TestDocument_BulkTogglesOverwriteEveryEntry(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		codeCell("a()"),
		codeCell("#| echo: false\nb()"),
		codeCell("c()"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	doc.SetAllCode(false)
	for _, cell := range doc.Cells {
		if doc.ShowCode(cell.ID) {
			t.Errorf("cell %s still visible after hide-all", cell.ID)
		}
	}
	doc.SetAllCode(true)
	for _, cell := range doc.Cells {
		if !doc.ShowCode(cell.ID) {
			t.Errorf("cell %s still hidden after show-all", cell.ID)
		}
	}
}

func TestDocument_ToggleSingleCell(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		codeCell("a()"),
		codeCell("b()"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	first, second := doc.Cells[0].ID, doc.Cells[1].ID
	doc.ToggleCode(first)
	if doc.ShowCode(first) {
		t.Error("toggled cell should now be hidden")
	}
	if !doc.ShowCode(second) {
		t.Error("untouched cell must keep its state")
	}
	doc.ToggleCode("no-such-cell")
	if doc.ShowCode(first) || !doc.ShowCode(second) {
		t.Error("toggling an unknown id must not disturb existing state")
	}
}

func TestRender_TocRespectsDepth(t *testing.T) {
	meta := testMeta()
	meta.Format.TocDepth = 1
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		markdownCell("# Top\n\n## Nested"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, meta)
	if len(doc.Toc) != 1 {
		t.Fatalf("toc roots = %d, want 1", len(doc.Toc))
	}
	if len(doc.Toc[0].Children) != 0 {
		t.Errorf("depth-limited toc should drop nested headings, got %d children", len(doc.Toc[0].Children))
	}
}

func TestRender_MarkdownAndCodeContent(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		markdownCell("Some **bold** text."),
		codeCell("print('hi')"),
	}}
	nb.Metadata = map[string]any{"language_info": map[string]any{"name": "python"}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	if !strings.Contains(string(doc.Cells[0].Markdown), "<strong>bold</strong>") {
		t.Errorf("markdown cell not converted: %q", doc.Cells[0].Markdown)
	}
	if doc.Cells[1].Language != "python" {
		t.Errorf("language = %q, want python", doc.Cells[1].Language)
	}
	if doc.Cells[1].Code == "" {
		t.Error("code cell should carry highlighted code")
	}
}

func TestDocument_LineNumbers(t *testing.T) {
	meta := testMeta()
	meta.Format.CodeLineNumbers = true
	doc := NewRenderer(discardLogger()).Render(&notebook.Notebook{NBFormat: 4}, meta)
	if !doc.LineNumbers() {
		t.Error("line numbers toggle should seed from format options")
	}
	doc.SetLineNumbers(false)
	if doc.LineNumbers() {
		t.Error("toggle should overwrite the seeded value")
	}
}

func TestDocument_SetLineNumbersRehighlightsCode(t *testing.T) {
	nb := &notebook.Notebook{NBFormat: 4, Cells: []notebook.Cell{
		codeCell("x = 1\ny = 2"),
	}}
	doc := NewRenderer(discardLogger()).Render(nb, testMeta())
	plain := doc.Cells[0].Code

	doc.SetLineNumbers(true)
	numbered := doc.Cells[0].Code
	if numbered == plain {
		t.Error("enabling line numbers should change the rendered code HTML")
	}
	if !doc.Cells[0].Visibility.LineNumbers {
		t.Error("cell visibility should track the document-wide toggle")
	}
	if want := Highlight("x = 1\ny = 2", "python", true); numbered != want {
		t.Errorf("numbered code = %q, want %q", numbered, want)
	}

	doc.SetLineNumbers(false)
	if doc.Cells[0].Code != plain {
		t.Error("disabling line numbers should restore the plain rendering")
	}
}
