package freq

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	ErrEmptyTable = errors.ErrorCode("freq_empty_table")
)
