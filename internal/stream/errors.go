package stream

import "codeberg.org/mutker/labdash/internal/errors"

const (
	ErrConnect         = errors.ErrorCode("stream_connect_failed")
	ErrPublish         = errors.ErrPublish
	ErrInvalidFrame    = errors.ErrorCode("invalid_frame")
	ErrInvalidArgument = errors.ErrInvalidArgument
	ErrUnavailable     = errors.ErrUnavailable
	ErrServe           = errors.ErrorCode("http_serve_failed")
)
