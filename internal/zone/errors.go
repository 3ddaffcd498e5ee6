package zone

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	ErrCapacityExceeded = errors.ErrorCode("zone_capacity_exceeded")
	ErrInvalidTuple     = errors.ErrorCode("zone_invalid_tuple")
	ErrMisordered       = errors.ErrorCode("zone_misordered")
)
