package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"codeberg.org/mutker/labdash/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryNewUsesMessageTable(t *testing.T) {
	err := errors.New().New(errors.ErrInvalidMode)

	assert.Equal(t, errors.ErrInvalidMode, err.Code())
	assert.Equal(t, "Invalid instrument mode", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := errors.New().Wrap(errors.ErrRecordTelemetry, cause)

	assert.Equal(t, "Failed to record telemetry: disk full", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestWithDataRendersData(t *testing.T) {
	err := errors.New().WithData(errors.ErrOutOfRange, "frequency 2e7")

	assert.Equal(t, "Value out of range: frequency 2e7", err.Error())
	assert.Equal(t, "frequency 2e7", err.GetData())
}

func TestCodeOf(t *testing.T) {
	coded := errors.New().New(errors.ErrPinNotWritable)
	wrapped := fmt.Errorf("gpio: %w", coded)

	assert.Equal(t, errors.ErrPinNotWritable, errors.CodeOf(wrapped))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(stderrors.New("plain")))
}

func TestHasCode(t *testing.T) {
	inner := errors.New().New(errors.ErrInvalidInterval)
	outer := errors.New().Wrap(errors.ErrInvalidConfig, inner)

	require.True(t, errors.HasCode(outer, errors.ErrInvalidConfig))
	assert.True(t, errors.HasCode(outer, errors.ErrInvalidInterval))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
}

func TestUnknownCodeFallsBackToCode(t *testing.T) {
	assert.Equal(t, "custom_code", errors.GetErrorMessage(errors.ErrorCode("custom_code")))
}
