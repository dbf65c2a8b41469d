package notebook

import (
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Metadata is the derived document configuration: display fields plus the
// document tier of the option cascade. It is produced once per notebook load
// and never mutated afterwards.
type Metadata struct {
	Title       string
	Author      []string
	Date        string
	Description string
	Categories  []string
	Featured    bool
	Format      FormatOptions
	Execute     ExecuteOptions
}

// DefaultFormatOptions returns the hard-coded format defaults.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		Toc:      true,
		TocDepth: 3,
		TocTitle: "Contents",
	}
}

// DefaultExecuteOptions returns the hard-coded execute defaults: everything
// visible.
func DefaultExecuteOptions() ExecuteOptions {
	return ExecuteOptions{
		Echo:    true,
		Output:  true,
		Include: true,
		Warning: true,
		Error:   true,
	}
}

// ExtractMetadata reads YAML front matter from the notebook's first raw or
// markdown cell and merges it over the defaults. Malformed front matter is
// treated as no front matter at all; the parse error is never surfaced.
func ExtractMetadata(nb *Notebook, slug string) Metadata {
	var fm map[string]any
	if len(nb.Cells) > 0 {
		first := &nb.Cells[0]
		if first.Type == CellRaw || first.Type == CellMarkdown {
			fm, _ = ParseFrontMatter(first.Source.String())
		}
	}
	return MetadataFromFrontMatter(fm, slug)
}

// ParseFrontMatter splits a YAML front matter block (between leading ---
// delimiters) from the body. A missing or malformed block yields a nil map
// and the full input as body.
func ParseFrontMatter(src string) (map[string]any, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(src, "\n\r")
	if !strings.HasPrefix(trimmed, delim) {
		return nil, src
	}
	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return nil, src
	}
	block := rest[:idx]
	body := strings.TrimLeft(rest[idx+1+len(delim):], "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, src
	}
	return fm, body
}

// MetadataFromFrontMatter builds Metadata from a parsed front matter map,
// falling back to defaults for every missing field. The format and execute
// bags are read both from the document root (hoisted keys) and from nested
// "format"/"execute" maps; when both carry the same key the nested value
// wins.
func MetadataFromFrontMatter(fm map[string]any, slug string) Metadata {
	meta := Metadata{
		Title:      TitleFromSlug(slug),
		Date:       time.Now().Format("2006-01-02"),
		Categories: []string{},
		Format:     DefaultFormatOptions(),
		Execute:    DefaultExecuteOptions(),
	}
	if fm == nil {
		return meta
	}

	if title := asString(fm["title"]); title != "" {
		meta.Title = title
	}
	meta.Author = asStringList(fm["author"])
	if date := asString(fm["date"]); date != "" {
		meta.Date = date
	}
	meta.Description = asString(fm["description"])
	if cats := asStringList(fm["categories"]); cats != nil {
		meta.Categories = cats
	}
	if featured := asBool(fm["featured"]); featured != nil {
		meta.Featured = *featured
	}

	// Hoisted keys first, then the nested bags on top.
	applyFormat(&meta.Format, fm)
	applyExecute(&meta.Execute, fm)
	if nested := nestedMap(fm, "format"); nested != nil {
		applyFormat(&meta.Format, nested)
	}
	if nested := nestedMap(fm, "execute"); nested != nil {
		applyExecute(&meta.Execute, nested)
	}
	return meta
}

// nestedMap returns fm[key] as a map. A Quarto "format" block often nests its
// options one level deeper under the output format name (format.html), so a
// sole "html" sub-map is descended into.
func nestedMap(fm map[string]any, key string) map[string]any {
	m, ok := fm[key].(map[string]any)
	if !ok {
		return nil
	}
	if key == "format" {
		if html, ok := m["html"].(map[string]any); ok {
			merged := make(map[string]any, len(m)+len(html))
			for k, v := range m {
				merged[k] = v
			}
			for k, v := range html {
				merged[k] = v
			}
			return merged
		}
	}
	return m
}

func applyFormat(opts *FormatOptions, m map[string]any) {
	if v := asFold(m["code-fold"]); v != FoldUnset {
		opts.CodeFold = v == FoldTrue || v == FoldShow || v == FoldHide
	}
	if v := asBool(m["code-tools"]); v != nil {
		opts.CodeTools = *v
	}
	if v := asBool(m["code-line-numbers"]); v != nil {
		opts.CodeLineNumbers = *v
	}
	if v := asBool(m["toc"]); v != nil {
		opts.Toc = *v
	}
	if v, ok := m["toc-depth"].(int); ok {
		opts.TocDepth = v
	}
	if v := asString(m["toc-title"]); v != "" {
		opts.TocTitle = v
	}
}

func applyExecute(opts *ExecuteOptions, m map[string]any) {
	if v := asBool(m["echo"]); v != nil {
		opts.Echo = *v
	}
	if v := asBool(m["output"]); v != nil {
		opts.Output = *v
	}
	if v := asBool(m["include"]); v != nil {
		opts.Include = *v
	}
	if v := asBool(m["warning"]); v != nil {
		opts.Warning = *v
	}
	if v := asBool(m["error"]); v != nil {
		opts.Error = *v
	}
}

// TitleFromSlug derives a display title from a slug by splitting on hyphens
// and capitalizing each word: "my-cool-post" → "My Cool Post".
func TitleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func asStringList(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}
