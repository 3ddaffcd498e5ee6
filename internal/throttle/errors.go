package throttle

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	ErrInvalidPeriod = errors.ErrorCode("throttle_invalid_period")
	ErrSampleFailed  = errors.ErrorCode("throttle_sample_failed")
)
