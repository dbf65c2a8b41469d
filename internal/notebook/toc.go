package notebook

import (
	"fmt"
	"regexp"
	"strings"
)

// TocEntry is one heading in the document outline. The forest is derived
// from the notebook's markdown cells and recomputed whenever the source
// notebook changes; it is never mutated independently.
type TocEntry struct {
	ID       string
	Level    int
	Text     string
	Children []*TocEntry
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// BuildToc scans markdown cells for heading lines and folds them into an
// outline forest with a stack: each heading first closes every open section
// at its own level or deeper, then nests under the most recent shallower
// heading (or becomes a new root). Headings inside fenced code blocks are
// skipped.
func BuildToc(cells []Cell) []*TocEntry {
	var roots []*TocEntry
	var stack []*TocEntry
	for i := range cells {
		cell := &cells[i]
		if cell.Type != CellMarkdown {
			continue
		}
		inFence := false
		for _, line := range strings.Split(cell.Source.String(), "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inFence = !inFence
				continue
			}
			if inFence {
				continue
			}
			m := headingRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			entry := &TocEntry{
				ID:    HeadingAnchor(i, m[2]),
				Level: len(m[1]),
				Text:  strings.TrimSpace(m[2]),
			}
			for len(stack) > 0 && stack[len(stack)-1].Level >= entry.Level {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				roots = append(roots, entry)
			} else {
				top := stack[len(stack)-1]
				top.Children = append(top.Children, entry)
			}
			stack = append(stack, entry)
		}
	}
	return roots
}

// LimitToc prunes entries deeper than maxLevel. A maxLevel of 0 or less
// returns the forest unchanged.
func LimitToc(entries []*TocEntry, maxLevel int) []*TocEntry {
	if maxLevel <= 0 {
		return entries
	}
	out := make([]*TocEntry, 0, len(entries))
	for _, e := range entries {
		if e.Level > maxLevel {
			continue
		}
		pruned := &TocEntry{ID: e.ID, Level: e.Level, Text: e.Text}
		pruned.Children = LimitToc(e.Children, maxLevel)
		out = append(out, pruned)
	}
	return out
}

// HeadingAnchor returns the stable anchor id for a heading inside the cell
// at cellIndex. The same derivation is used when rendering markdown headings
// so in-page navigation resolves.
func HeadingAnchor(cellIndex int, text string) string {
	return fmt.Sprintf("cell-%d-%s", cellIndex, Slugify(text))
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases text and collapses runs of non-alphanumeric characters
// into single hyphens.
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugStripRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
