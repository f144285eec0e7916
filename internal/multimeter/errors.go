package multimeter

import "codeberg.org/mutker/labdash/internal/errors"

const (
	ErrInvalidMode = errors.ErrInvalidMode
)
