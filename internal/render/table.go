package render

import (
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// TablePageSize is the fixed pagination size for interactive tables.
const TablePageSize = 10

// SortState is the three-state sort cycle of an interactive table column.
type SortState int

const (
	SortNone SortState = iota
	SortAsc
	SortDesc
)

// Next returns the following state in the ascending → descending → unsorted
// cycle.
func (s SortState) Next() SortState {
	switch s {
	case SortNone:
		return SortAsc
	case SortAsc:
		return SortDesc
	default:
		return SortNone
	}
}

// Table is tabular output ready for the interactive renderer: sortable
// columns and fixed-size pagination. IndexColumns counts leading row-header
// columns for grouped/multi-level row headers.
type Table struct {
	Headers      []string
	Rows         [][]string
	IndexColumns int
}

// TableState carries the interactive controls applied to one rendered table.
type TableState struct {
	SortColumn int
	Sort       SortState
	Page       int
}

// ParseTable extracts {headers, rows} from the first <table> element in raw
// HTML. Multi-index row headers are inferred by counting leading <th> cells
// in the first body row; the heuristic is best-effort for irregular tables.
func ParseTable(raw string) (*Table, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("render: parse table html: %w", err)
	}
	tableNode := findElement(root, "table")
	if tableNode == nil {
		return nil, fmt.Errorf("render: no table element found")
	}

	var headers []string
	var rows [][]string
	indexCols := 0

	for _, tr := range findAll(tableNode, "tr") {
		var cells []string
		allHeader := true
		leadingTH := 0
		counting := true
		for child := tr.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			switch child.Data {
			case "th":
				if counting {
					leadingTH++
				}
				cells = append(cells, nodeText(child))
			case "td":
				counting = false
				allHeader = false
				cells = append(cells, nodeText(child))
			}
		}
		if len(cells) == 0 {
			continue
		}
		if headers == nil && allHeader {
			headers = cells
			continue
		}
		if len(rows) == 0 {
			indexCols = leadingTH
		}
		rows = append(rows, cells)
	}

	if headers == nil && len(rows) == 0 {
		return nil, fmt.Errorf("render: table has no rows")
	}
	return &Table{Headers: headers, Rows: rows, IndexColumns: indexCols}, nil
}

// Sorted returns the rows ordered by column col. Values compare numerically
// when every non-empty cell in the column parses as a number,
// lexicographically otherwise. SortNone returns the rows in original order.
func (t *Table) Sorted(col int, state SortState) [][]string {
	out := make([][]string, len(t.Rows))
	copy(out, t.Rows)
	if state == SortNone || col < 0 {
		return out
	}
	numeric := t.columnIsNumeric(col)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := cellAt(out[i], col), cellAt(out[j], col)
		if numeric {
			fa, _ := strconv.ParseFloat(strings.TrimSpace(a), 64)
			fb, _ := strconv.ParseFloat(strings.TrimSpace(b), 64)
			if state == SortDesc {
				return fa > fb
			}
			return fa < fb
		}
		if state == SortDesc {
			return a > b
		}
		return a < b
	})
	return out
}

func (t *Table) columnIsNumeric(col int) bool {
	seen := false
	for _, row := range t.Rows {
		v := strings.TrimSpace(cellAt(row, col))
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return row[col]
}

// Paginated reports whether the table exceeds one page.
func (t *Table) Paginated() bool {
	return len(t.Rows) > TablePageSize
}

// PageCount returns the number of fixed-size pages.
func (t *Table) PageCount() int {
	if len(t.Rows) == 0 {
		return 1
	}
	return (len(t.Rows) + TablePageSize - 1) / TablePageSize
}

// Page slices rows down to the zero-based page n. Out-of-range pages clamp
// to the nearest valid page. Tables within the page size are returned whole.
func (t *Table) Page(rows [][]string, n int) [][]string {
	if len(rows) <= TablePageSize {
		return rows
	}
	last := (len(rows) - 1) / TablePageSize
	if n < 0 {
		n = 0
	}
	if n > last {
		n = last
	}
	start := n * TablePageSize
	end := start + TablePageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// RenderTable renders the table with the given interactive state applied:
// rows sorted, the requested page sliced out, and sort/pager affordances in
// the markup.
func RenderTable(t *Table, st TableState) template.HTML {
	rows := t.Page(t.Sorted(st.SortColumn, st.Sort), st.Page)

	var b strings.Builder
	b.WriteString(`<table class="interactive-table" data-page-size="`)
	b.WriteString(strconv.Itoa(TablePageSize))
	b.WriteString(`">`)
	if len(t.Headers) > 0 {
		b.WriteString("<thead><tr>")
		for i, h := range t.Headers {
			cls := "sortable"
			if i == st.SortColumn {
				switch st.Sort {
				case SortAsc:
					cls = "sortable sorted-asc"
				case SortDesc:
					cls = "sortable sorted-desc"
				}
			}
			fmt.Fprintf(&b, `<th class=%q data-col="%d">%s</th>`, cls, i, template.HTMLEscapeString(h))
		}
		b.WriteString("</tr></thead>")
	}
	b.WriteString("<tbody>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for i, cell := range row {
			tag := "td"
			if i < t.IndexColumns {
				tag = "th"
			}
			fmt.Fprintf(&b, "<%s>%s</%s>", tag, template.HTMLEscapeString(cell), tag)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	if t.Paginated() {
		fmt.Fprintf(&b, `<nav class="table-pager" data-pages="%d" data-page="%d"></nav>`, t.PageCount(), st.Page)
	}
	return template.HTML(b.String())
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, name); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, name string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == name {
			out = append(out, node)
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child)
	}
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
