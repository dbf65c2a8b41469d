package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"github.com/justmytwospence/blog/internal/notebook"
)

// md is the markdown collaborator. Raw HTML is allowed through because
// markdown cells are the site author's own prose, and heading attributes are
// enabled so anchors can be injected to match the table of contents.
var md = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	goldmark.WithParserOptions(parser.WithAttribute()),
	goldmark.WithRendererOptions(ghtml.WithUnsafe()),
)

// Callout is a Quarto callout block: note/warning/tip/important, optionally
// collapsible, with an optional custom title taken from a leading heading
// inside the block.
type Callout struct {
	Kind        string
	Title       string
	Collapsible bool
	Body        string
}

type blockKind int

const (
	blockProse blockKind = iota
	blockTable
	blockCallout
)

type mdBlock struct {
	kind    blockKind
	text    string
	callout *Callout
}

var (
	calloutOpenRe  = regexp.MustCompile(`^:::+\s*\{\.callout-(note|warning|tip|important)([^}]*)\}\s*$`)
	calloutCloseRe = regexp.MustCompile(`^:::+\s*$`)
	collapseAttrRe = regexp.MustCompile(`collapse\s*=\s*"?true"?`)
	tableSepRe     = regexp.MustCompile(`^\s*\|?[\s:|-]+\|[\s:|-]*$`)
	calloutHeadRe  = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
)

// RenderMarkdown converts one markdown cell to HTML. Three special block
// types are pre-extracted before the generic markdown transform runs:
// GitHub-style pipe tables (handed to the interactive table renderer) and
// Quarto callout blocks; ordinary prose goes straight to goldmark. Heading
// anchors are injected so they match the table of contents for cellIndex.
func RenderMarkdown(source string, cellIndex int) template.HTML {
	withAnchors := injectHeadingAnchors(source, cellIndex)
	var b strings.Builder
	for _, block := range splitBlocks(withAnchors) {
		switch block.kind {
		case blockCallout:
			b.WriteString(string(renderCallout(block.callout)))
		case blockTable:
			b.WriteString(string(renderMarkdownTable(block.text)))
		default:
			b.WriteString(string(convertProse(block.text)))
		}
	}
	return template.HTML(b.String())
}

func convertProse(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		// The collaborator failed; fall back to escaped text.
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(buf.String())
}

// injectHeadingAnchors rewrites heading lines (outside code fences) with an
// explicit {#id} attribute derived from the shared slugifier.
func injectHeadingAnchors(src string, cellIndex int) string {
	lines := strings.Split(src, "\n")
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := headingLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		anchor := notebook.HeadingAnchor(cellIndex, m[2])
		lines[i] = fmt.Sprintf("%s %s {#%s}", m[1], strings.TrimSpace(m[2]), anchor)
	}
	return strings.Join(lines, "\n")
}

var headingLineRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// splitBlocks partitions markdown into prose, pipe-table, and callout blocks.
func splitBlocks(src string) []mdBlock {
	lines := strings.Split(src, "\n")
	var blocks []mdBlock
	var prose []string

	flushProse := func() {
		if len(prose) > 0 {
			blocks = append(blocks, mdBlock{kind: blockProse, text: strings.Join(prose, "\n") + "\n"})
			prose = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := calloutOpenRe.FindStringSubmatch(line); m != nil {
			flushProse()
			var body []string
			j := i + 1
			for ; j < len(lines); j++ {
				if calloutCloseRe.MatchString(lines[j]) {
					break
				}
				body = append(body, lines[j])
			}
			blocks = append(blocks, mdBlock{kind: blockCallout, callout: buildCallout(m[1], m[2], body)})
			i = j
			continue
		}

		// A pipe table is a header row followed by a separator row.
		if strings.Contains(line, "|") && i+1 < len(lines) && tableSepRe.MatchString(lines[i+1]) {
			flushProse()
			var rows []string
			j := i
			for ; j < len(lines); j++ {
				if !strings.Contains(lines[j], "|") {
					break
				}
				rows = append(rows, lines[j])
			}
			blocks = append(blocks, mdBlock{kind: blockTable, text: strings.Join(rows, "\n")})
			i = j - 1
			continue
		}

		prose = append(prose, line)
	}
	flushProse()
	return blocks
}

// buildCallout assembles a callout, pulling an optional custom title from a
// leading heading inside the block body.
func buildCallout(kind, attrs string, body []string) *Callout {
	c := &Callout{
		Kind:        kind,
		Title:       notebook.TitleFromSlug(kind),
		Collapsible: collapseAttrRe.MatchString(attrs),
	}
	for len(body) > 0 && strings.TrimSpace(body[0]) == "" {
		body = body[1:]
	}
	if len(body) > 0 {
		if m := calloutHeadRe.FindStringSubmatch(strings.TrimSpace(body[0])); m != nil {
			c.Title = strings.TrimSpace(m[1])
			body = body[1:]
		}
	}
	c.Body = strings.Join(body, "\n")
	return c
}

func renderCallout(c *Callout) template.HTML {
	inner := convertProse(c.Body)
	title := template.HTMLEscapeString(c.Title)
	if c.Collapsible {
		return template.HTML(fmt.Sprintf(
			`<details class="callout callout-%s"><summary>%s</summary><div class="callout-body">%s</div></details>`,
			c.Kind, title, inner))
	}
	return template.HTML(fmt.Sprintf(
		`<div class="callout callout-%s"><div class="callout-title">%s</div><div class="callout-body">%s</div></div>`,
		c.Kind, title, inner))
}

// renderMarkdownTable parses a pipe table and hands it to the interactive
// table renderer in its default state.
func renderMarkdownTable(src string) template.HTML {
	t := parsePipeTable(src)
	if t == nil {
		return convertProse(src)
	}
	return RenderTable(t, TableState{Sort: SortNone})
}

func parsePipeTable(src string) *Table {
	lines := strings.Split(strings.TrimSpace(src), "\n")
	if len(lines) < 2 {
		return nil
	}
	headers := splitPipeRow(lines[0])
	var rows [][]string
	for _, line := range lines[2:] {
		if cells := splitPipeRow(line); len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	if len(headers) == 0 {
		return nil
	}
	return &Table{Headers: headers, Rows: rows}
}

func splitPipeRow(line string) []string {
	trimmed := strings.Trim(strings.TrimSpace(line), "|")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "|")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
