package gpio_test

import (
	"testing"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/gpio"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/throttle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverWritesOnChange(t *testing.T) {
	ind := gpio.NewFakeIndicator()
	o := gpio.NewObserver(ind, logger.New())

	for _, active := range []bool{false, false, true, true, true, false, true} {
		o.Observe(throttle.Sample{Active: active})
	}

	assert.Equal(t, []bool{false, true, false, true}, ind.Writes())

	require.NoError(t, ind.Close())
	assert.True(t, ind.Closed())
}

func TestObserverRetriesAfterFailure(t *testing.T) {
	ind := gpio.NewFakeIndicator()
	o := gpio.NewObserver(ind, logger.New())

	ind.SetError = errors.New().New(gpio.ErrSetLine)
	o.Observe(throttle.Sample{Active: true})
	assert.Empty(t, ind.Writes())

	ind.SetError = nil
	o.Observe(throttle.Sample{Active: true})
	assert.Equal(t, []bool{true}, ind.Writes())
}
