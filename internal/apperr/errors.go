package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnsupportedKind = errors.New("unsupported content kind")
)
