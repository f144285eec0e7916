package powersupply

import "codeberg.org/mutker/labdash/internal/errors"

const (
	ErrOutOfRange = errors.ErrOutOfRange
)
