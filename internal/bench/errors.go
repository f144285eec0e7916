package bench

import "codeberg.org/mutker/labdash/internal/errors"

const (
	ErrInitBench = errors.ErrInitBench
	ErrClosed    = errors.ErrorCode("bench_closed")
	ErrPublish   = errors.ErrPublish
)
