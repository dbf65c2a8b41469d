package notebook

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CodeFold is the Quarto code-fold directive. The zero value means the
// directive is absent, which is distinct from an explicit false.
type CodeFold string

const (
	FoldUnset CodeFold = ""
	FoldFalse CodeFold = "false"
	FoldTrue  CodeFold = "true"
	FoldShow  CodeFold = "show"
	FoldHide  CodeFold = "hide"
)

// CellOptions is the sparse per-cell directive record. Nil pointers mean the
// directive is absent and the document tier of the cascade decides.
type CellOptions struct {
	Echo        *bool
	Output      *bool
	Include     *bool
	Warning     *bool
	Error       *bool
	CodeFold    CodeFold
	LineNumbers *bool
	FigCap      string
	FigAlt      string
	FigWidth    string
	FigHeight   string
	Label       string
}

// ExecuteOptions is the document tier of the option cascade.
type ExecuteOptions struct {
	Echo    bool `yaml:"echo"`
	Output  bool `yaml:"output"`
	Include bool `yaml:"include"`
	Warning bool `yaml:"warning"`
	Error   bool `yaml:"error"`
}

// FormatOptions holds document presentation defaults.
type FormatOptions struct {
	CodeFold        bool   `yaml:"code-fold"`
	CodeTools       bool   `yaml:"code-tools"`
	CodeLineNumbers bool   `yaml:"code-line-numbers"`
	Toc             bool   `yaml:"toc"`
	TocDepth        int    `yaml:"toc-depth"`
	TocTitle        string `yaml:"toc-title"`
}

// Visibility is the resolved render decision for one code cell.
type Visibility struct {
	ShowCode    bool
	ShowOutput  bool
	LineNumbers bool
	Collapsible bool
	Collapsed   bool
}

// Resolve applies the cell → document → default cascade and returns the
// cell's visibility decisions. Code visibility is evaluated in strict order,
// first match wins:
//
//  1. cell echo false        → hidden
//  2. cell code-fold "hide"  → hidden
//  3. cell code-fold "show" or true → visible
//  4. document echo false    → hidden
//  5. default                → visible
//
// A cell is collapsible only when its own code-fold directive is explicitly
// true, "show", or "hide"; an absent directive means always-visible with no
// toggle.
func Resolve(cell CellOptions, doc ExecuteOptions, format FormatOptions) Visibility {
	v := Visibility{
		ShowCode:   resolveCode(cell, doc),
		ShowOutput: resolveOutput(cell, doc),
	}
	if cell.LineNumbers != nil {
		v.LineNumbers = *cell.LineNumbers
	} else {
		v.LineNumbers = format.CodeLineNumbers
	}
	switch cell.CodeFold {
	case FoldTrue, FoldShow, FoldHide:
		v.Collapsible = true
		v.Collapsed = cell.CodeFold == FoldHide
	}
	return v
}

func resolveCode(cell CellOptions, doc ExecuteOptions) bool {
	if cell.Echo != nil && !*cell.Echo {
		return false
	}
	switch cell.CodeFold {
	case FoldHide:
		return false
	case FoldShow, FoldTrue:
		return true
	}
	return doc.Echo
}

func resolveOutput(cell CellOptions, doc ExecuteOptions) bool {
	if cell.Output != nil && !*cell.Output {
		return false
	}
	return doc.Output
}

// Included reports whether the cell renders at all. Checked before any
// echo/output logic: an excluded cell contributes nothing to the document.
func Included(cell CellOptions, doc ExecuteOptions) bool {
	if cell.Include != nil {
		return *cell.Include
	}
	return doc.Include
}

// ShowWarnings resolves the warning cascade for stderr stream outputs.
func ShowWarnings(cell CellOptions, doc ExecuteOptions) bool {
	if cell.Warning != nil {
		return *cell.Warning
	}
	return doc.Warning
}

// ShowErrors resolves the error cascade for error outputs.
func ShowErrors(cell CellOptions, doc ExecuteOptions) bool {
	if cell.Error != nil {
		return *cell.Error
	}
	return doc.Error
}

const directivePrefix = "#|"

// Options resolves the cell's directive record. Directives can live in the
// cell metadata or as leading "#| key: value" comment lines in a code cell's
// source; comment directives take precedence. The returned source has the
// directive lines removed so they never appear in the rendered code.
func (c *Cell) Options() (CellOptions, string) {
	opts := optionsFromMap(c.Metadata)
	src := c.Source.String()
	if c.Type != CellCode {
		return opts, src
	}
	comment, rest := parseDirectiveComments(src)
	return mergeOptions(opts, comment), rest
}

// parseDirectiveComments reads the contiguous run of "#|" lines at the top of
// source. Malformed directive YAML is ignored and the source is returned
// untouched, matching the parse-recoverable policy for front matter.
func parseDirectiveComments(source string) (CellOptions, string) {
	lines := strings.Split(source, "\n")
	var yamlLines []string
	consumed := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, directivePrefix) {
			break
		}
		yamlLines = append(yamlLines, strings.TrimPrefix(trimmed, directivePrefix))
		consumed++
	}
	if consumed == 0 {
		return CellOptions{}, source
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &raw); err != nil {
		return CellOptions{}, source
	}
	rest := strings.Join(lines[consumed:], "\n")
	rest = strings.TrimPrefix(rest, "\n")
	return optionsFromMap(raw), rest
}

func optionsFromMap(m map[string]any) CellOptions {
	var opts CellOptions
	if m == nil {
		return opts
	}
	opts.Echo = asBool(m["echo"])
	opts.Output = asBool(m["output"])
	opts.Include = asBool(m["include"])
	opts.Warning = asBool(m["warning"])
	opts.Error = asBool(m["error"])
	opts.LineNumbers = asBool(m["code-line-numbers"])
	opts.CodeFold = asFold(m["code-fold"])
	opts.FigCap = asString(m["fig-cap"])
	opts.FigAlt = asString(m["fig-alt"])
	opts.FigWidth = asString(m["fig-width"])
	opts.FigHeight = asString(m["fig-height"])
	opts.Label = asString(m["label"])
	return opts
}

// mergeOptions overlays b onto a for every directive b carries.
func mergeOptions(a, b CellOptions) CellOptions {
	if b.Echo != nil {
		a.Echo = b.Echo
	}
	if b.Output != nil {
		a.Output = b.Output
	}
	if b.Include != nil {
		a.Include = b.Include
	}
	if b.Warning != nil {
		a.Warning = b.Warning
	}
	if b.Error != nil {
		a.Error = b.Error
	}
	if b.LineNumbers != nil {
		a.LineNumbers = b.LineNumbers
	}
	if b.CodeFold != FoldUnset {
		a.CodeFold = b.CodeFold
	}
	if b.FigCap != "" {
		a.FigCap = b.FigCap
	}
	if b.FigAlt != "" {
		a.FigAlt = b.FigAlt
	}
	if b.FigWidth != "" {
		a.FigWidth = b.FigWidth
	}
	if b.FigHeight != "" {
		a.FigHeight = b.FigHeight
	}
	if b.Label != "" {
		a.Label = b.Label
	}
	return a
}

func asBool(v any) *bool {
	switch b := v.(type) {
	case bool:
		out := b
		return &out
	case string:
		switch b {
		case "true":
			out := true
			return &out
		case "false":
			out := false
			return &out
		}
	}
	return nil
}

// asFold normalizes the code-fold directive: booleans map to "true"/"false",
// the strings "show" and "hide" pass through.
func asFold(v any) CodeFold {
	switch f := v.(type) {
	case bool:
		if f {
			return FoldTrue
		}
		return FoldFalse
	case string:
		switch f {
		case "show":
			return FoldShow
		case "hide":
			return FoldHide
		case "true":
			return FoldTrue
		case "false":
			return FoldFalse
		}
	}
	return FoldUnset
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
