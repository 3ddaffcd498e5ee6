package sensor

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	ErrReadFailed     = errors.ErrorCode("sensor_read_failed")
	ErrInvalidReading = errors.ErrorCode("sensor_invalid_reading")
	ErrNotFound       = errors.ErrorCode("sensor_not_found")
	ErrUnknownType    = errors.ErrorCode("sensor_unknown_type")
	ErrTimeout        = errors.ErrorCode("sensor_timeout")
)
