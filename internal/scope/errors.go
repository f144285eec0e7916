package scope

import "codeberg.org/mutker/labdash/internal/errors"

const (
	ErrInvalidMode = errors.ErrInvalidMode
	ErrOutOfRange  = errors.ErrOutOfRange
)
