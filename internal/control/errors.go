package control

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	ErrUnknownKey   = errors.ErrorCode("control_unknown_key")
	ErrInvalidValue = errors.ErrorCode("control_invalid_value")
)
