package notebook

import (
	"errors"
	"fmt"
)

// Validate checks that v, a decoded JSON value, conforms to the notebook
// shape. It is the sole trust boundary for untrusted input: a hand-edited or
// malformed document must be rejected here, before any other component
// touches it. Errors name the offending field and, for cells, the cell index.
func Validate(v any) error {
	doc, ok := v.(map[string]any)
	if !ok || doc == nil {
		return errors.New("notebook: document must be a JSON object")
	}
	nf, ok := doc["nbformat"].(float64)
	if !ok {
		return errors.New("notebook: missing or non-numeric nbformat")
	}
	if nf < 4 {
		return errors.New("notebook: nbformat must be 4 or greater")
	}
	cells, ok := doc["cells"].([]any)
	if !ok {
		return errors.New("notebook: cells must be an array")
	}
	for i, rc := range cells {
		if err := validateCell(i, rc); err != nil {
			return err
		}
	}
	return nil
}

func validateCell(i int, rc any) error {
	cell, ok := rc.(map[string]any)
	if !ok || cell == nil {
		return fmt.Errorf("notebook: cell %d: must be an object", i)
	}
	ct, _ := cell["cell_type"].(string)
	switch ct {
	case CellCode, CellMarkdown, CellRaw:
	default:
		return fmt.Errorf("notebook: cell %d: invalid cell_type %v", i, cell["cell_type"])
	}
	if err := validateSource(cell["source"]); err != nil {
		return fmt.Errorf("notebook: cell %d: %w", i, err)
	}
	if ct != CellCode {
		return nil
	}
	if raw, present := cell["outputs"]; present {
		if _, ok := raw.([]any); !ok {
			return fmt.Errorf("notebook: cell %d: outputs must be an array", i)
		}
	}
	if raw, present := cell["execution_count"]; present && raw != nil {
		if _, ok := raw.(float64); !ok {
			return fmt.Errorf("notebook: cell %d: execution_count must be a number or null", i)
		}
	}
	return nil
}

func validateSource(v any) error {
	switch src := v.(type) {
	case string:
		return nil
	case []any:
		for _, item := range src {
			if _, ok := item.(string); !ok {
				return errors.New("source must be a string or an array of strings")
			}
		}
		return nil
	default:
		return errors.New("source must be a string or an array of strings")
	}
}
