package errors_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrInvalidConfig)
	assert.Equal(t, "Invalid configuration", err.Error())
	assert.Equal(t, errors.ErrInvalidConfig, err.Code())

	err = errFactory.WithData(errors.ErrInvalidArgument, "zone index out of range")
	assert.Equal(t, "Invalid argument provided: zone index out of range", err.Error())

	err = errFactory.New(errors.ErrorCode("custom_code"))
	assert.Equal(t, "custom_code", err.Error())
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := errors.New().Wrap(errors.ErrOperationFailed, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Operation failed: boom", err.Error())
	assert.Equal(t, "custom: boom", err.WithMessage("custom").Error())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrTimeout)
	outer := errFactory.Wrap(errors.ErrOperationFailed, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrOperationFailed))
	assert.True(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(outer, errors.ErrInvalidConfig))
	assert.False(t, errors.HasCode(stderrors.New("plain"), errors.ErrTimeout))
	assert.False(t, errors.HasCode(nil, errors.ErrTimeout))

	assert.Equal(t, errors.ErrOperationFailed, errors.CodeOf(outer))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(stderrors.New("plain")))
}
