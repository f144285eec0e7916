package gpio

import "codeberg.org/mutker/labdash/internal/errors"

const (
	ErrPinNotWritable = errors.ErrPinNotWritable
	ErrPinNotFound    = errors.ErrResourceNotFound
	ErrOutOfRange     = errors.ErrOutOfRange
	ErrInvalidMode    = errors.ErrInvalidMode
)
