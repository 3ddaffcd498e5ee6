package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/events"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/throttle"
	"codeberg.org/mutker/thermalctl/internal/zone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSample(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		prev     zone.Index
		next     zone.Index
		wantKind events.Kind
		wantOK   bool
	}{
		{"unchanged", 1, 1, "", false},
		{"unchanged unthrottled", zone.Unthrottled, zone.Unthrottled, "", false},
		{"throttled", zone.Unthrottled, 0, events.KindThrottled, true},
		{"zone changed", 0, 2, events.KindZoneChanged, true},
		{"released", 2, zone.Unthrottled, events.KindReleased, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := events.FromSample(throttle.Sample{Time: ts, Previous: tt.prev, Zone: tt.next})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKind, ev.Kind)
		})
	}
}

func TestFormatPayload(t *testing.T) {
	payload, err := events.FormatPayload(events.Event{
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC),
		Kind:        events.KindThrottled,
		Temperature: zone.FromCelsius(52.25),
		From:        zone.Unthrottled,
		To:          1,
		Active:      true,
	})
	require.NoError(t, err)

	var parsed events.Payload
	require.NoError(t, json.Unmarshal(payload, &parsed))
	assert.Equal(t, "2026-03-01T12:00:05Z", parsed.Thermal.Timestamp)
	assert.Equal(t, "THROTTLED", parsed.Thermal.Event)
	assert.InDelta(t, 52.25, parsed.Thermal.TemperatureC, 1e-9)
	assert.Equal(t, "unthrottled", parsed.Thermal.From)
	assert.Equal(t, "zone01", parsed.Thermal.To)
	assert.True(t, parsed.Thermal.ThrottleActive)
}

func TestNotifierPublishesTransitions(t *testing.T) {
	pub := events.NewFakePublisher()
	n := events.NewNotifier(pub, 0, logger.New())

	n.Observe(throttle.Sample{Previous: zone.Unthrottled, Zone: zone.Unthrottled})
	n.Observe(throttle.Sample{Previous: zone.Unthrottled, Zone: 0, Active: true})
	n.Observe(throttle.Sample{Previous: 0, Zone: 0, Active: true})
	n.Observe(throttle.Sample{Previous: 0, Zone: zone.Unthrottled, Active: true})

	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
	assert.True(t, pub.Closed())

	got := pub.Events()
	require.Len(t, got, 2)
	assert.Equal(t, events.KindThrottled, got[0].Kind)
	assert.Equal(t, events.KindReleased, got[1].Kind)
	assert.Len(t, pub.Payloads(), 2)

	n.Observe(throttle.Sample{Previous: zone.Unthrottled, Zone: 3})
	assert.Len(t, pub.Events(), 2, "closed notifier drops events")
}

func TestNotifierSurvivesPublishErrors(t *testing.T) {
	pub := events.NewFakePublisher()
	pub.PublishError = errors.New().New(events.ErrPublishTimeout)
	n := events.NewNotifier(pub, 1, logger.New())

	for i := 0; i < 10; i++ {
		n.Observe(throttle.Sample{Previous: zone.Unthrottled, Zone: 0})
	}

	require.NoError(t, n.Close())
	assert.Empty(t, pub.Events())
}

func TestConfigValidate(t *testing.T) {
	cfg := events.DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Enabled = true
	require.NoError(t, cfg.Validate())

	cfg.Broker = ""
	assert.True(t, errors.HasCode(cfg.Validate(), events.ErrInvalidConfig))
}
