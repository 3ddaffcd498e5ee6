package gpio

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	ErrOpenChip     = errors.ErrorCode("gpio_open_chip_failed")
	ErrRequestLine  = errors.ErrorCode("gpio_request_line_failed")
	ErrSetLine      = errors.ErrorCode("gpio_set_line_failed")
	ErrCloseLine    = errors.ErrorCode("gpio_close_failed")
	ErrNotSupported = errors.ErrorCode("gpio_not_supported")
)
