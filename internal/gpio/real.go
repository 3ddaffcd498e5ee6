//go:build linux

package gpio

import (
	"github.com/warthog618/go-gpiocdev"

	"codeberg.org/mutker/thermalctl/internal/errors"
)

// RealIndicator drives a line through the Linux GPIO character device.
type RealIndicator struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealIndicator requests offset on chip as an output, initially low.
func NewRealIndicator(chip string, offset int) (*RealIndicator, error) {
	errFactory := errors.New()

	if chip == "" {
		chip = DefaultChip
	}

	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenChip, err)
	}

	line, err := c.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("thermalctl"))
	if err != nil {
		c.Close()
		return nil, errFactory.WithData(ErrRequestLine, struct {
			Chip   string
			Offset int
			Error  string
		}{
			Chip:   chip,
			Offset: offset,
			Error:  err.Error(),
		})
	}

	return &RealIndicator{chip: c, line: line}, nil
}

func (r *RealIndicator) Set(active bool) error {
	v := 0
	if active {
		v = 1
	}

	if err := r.line.SetValue(v); err != nil {
		return errors.New().Wrap(ErrSetLine, err)
	}

	return nil
}

// Close drives the line low and returns it to an input before releasing it.
func (r *RealIndicator) Close() error {
	errFactory := errors.New()

	var errs []error
	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, errFactory.Wrap(ErrSetLine, err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, errFactory.Wrap(ErrCloseLine, err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, errFactory.Wrap(ErrCloseLine, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, errFactory.Wrap(ErrCloseLine, err))
		}
	}

	return errors.Join(errs...)
}
