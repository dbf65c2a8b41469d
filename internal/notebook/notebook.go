// Package notebook implements the Jupyter notebook model and the transforms
// that turn raw notebook JSON into a renderable plan: structural validation,
// front-matter metadata extraction, visibility resolution, and table of
// contents construction.
package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Cell type tags (nbformat 4).
const (
	CellCode     = "code"
	CellMarkdown = "markdown"
	CellRaw      = "raw"
)

// Output type tags.
const (
	OutputStream        = "stream"
	OutputDisplayData   = "display_data"
	OutputExecuteResult = "execute_result"
	OutputError         = "error"
)

// Notebook is the root document aggregate.
type Notebook struct {
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Cells         []Cell         `json:"cells"`
}

// Cell is one unit of a notebook: code, markdown, or raw.
type Cell struct {
	ID             string         `json:"id,omitempty"`
	Type           string         `json:"cell_type"`
	Source         SourceText     `json:"source"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Outputs        []Output       `json:"outputs,omitempty"`
	ExecutionCount *int           `json:"execution_count,omitempty"`
}

// Identity returns the cell's stable identity: the explicit id when present,
// otherwise an id synthesized from the cell type and its position. The
// synthesized form is index-based so a cell keeps its identity when its
// content changes but its position does not.
func (c *Cell) Identity(index int) string {
	if c.ID != "" {
		return c.ID
	}
	return fmt.Sprintf("%s-%d", c.Type, index)
}

// Output is one entry of a code cell's outputs array.
type Output struct {
	Type           string         `json:"output_type"`
	Name           string         `json:"name,omitempty"` // stream: stdout or stderr
	Text           SourceText     `json:"text,omitempty"` // stream payload
	Data           MIMEBundle     `json:"data,omitempty"` // display_data / execute_result
	Metadata       map[string]any `json:"metadata,omitempty"`
	ExecutionCount *int           `json:"execution_count,omitempty"`
	EName          string         `json:"ename,omitempty"` // error
	EValue         string         `json:"evalue,omitempty"`
	Traceback      []string       `json:"traceback,omitempty"`
}

// IsDisplay reports whether the output carries a MIME bundle.
func (o *Output) IsDisplay() bool {
	return o.Type == OutputDisplayData || o.Type == OutputExecuteResult
}

// SourceText is notebook source that may arrive either as a single string or
// as an array of line fragments. Both forms are semantically equivalent and
// normalize to one concatenated string on decode.
type SourceText string

// UnmarshalJSON accepts a JSON string or an array of strings.
func (s *SourceText) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = SourceText(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("notebook: source must be a string or an array of strings")
	}
	*s = SourceText(strings.Join(many, ""))
	return nil
}

func (s SourceText) String() string { return string(s) }

// MIMEBundle maps MIME type strings to opaque payloads. Payload content is
// never interpreted here beyond the string/line-array normalization.
type MIMEBundle map[string]json.RawMessage

// Has reports whether the bundle carries a payload for mime.
func (b MIMEBundle) Has(mime string) bool {
	_, ok := b[mime]
	return ok
}

// Text returns the payload for mime as normalized text. String and
// line-array payloads are concatenated; any other payload is returned as its
// raw JSON encoding.
func (b MIMEBundle) Text(mime string) (string, bool) {
	raw, ok := b[mime]
	if !ok {
		return "", false
	}
	var s SourceText
	if err := json.Unmarshal(raw, &s); err == nil {
		return s.String(), true
	}
	return string(raw), true
}

// Keys returns the bundle's MIME types in sorted order.
func (b MIMEBundle) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Language returns the notebook's code language from language_info or
// kernelspec metadata, defaulting to "python".
func (nb *Notebook) Language() string {
	if li, ok := nb.Metadata["language_info"].(map[string]any); ok {
		if name, ok := li["name"].(string); ok && name != "" {
			return name
		}
	}
	if ks, ok := nb.Metadata["kernelspec"].(map[string]any); ok {
		if lang, ok := ks["language"].(string); ok && lang != "" {
			return lang
		}
	}
	return "python"
}

// Parse decodes and validates raw notebook JSON. Validation runs on the
// decoded generic value before the typed model is populated, so a *Notebook
// returned from here can be trusted structurally by every other component.
func Parse(data []byte) (*Notebook, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("notebook: decode: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var nb Notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("notebook: decode cells: %w", err)
	}
	return &nb, nil
}
