//go:build !linux

package gpio

import "codeberg.org/mutker/thermalctl/internal/errors"

// RealIndicator is not available on non-Linux platforms.
type RealIndicator struct{}

// NewRealIndicator returns an error on non-Linux platforms.
func NewRealIndicator(string, int) (*RealIndicator, error) {
	return nil, errors.New().WithMessage(ErrNotSupported, "gpio requires Linux")
}

func (*RealIndicator) Set(bool) error {
	return errors.New().New(ErrNotSupported)
}

func (*RealIndicator) Close() error {
	return nil
}
