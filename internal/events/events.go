// Package events publishes thermal zone transitions over MQTT.
package events

import (
	"encoding/json"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/throttle"
	"codeberg.org/mutker/thermalctl/internal/zone"
)

// DefaultTopic is the topic zone transitions are published to.
const DefaultTopic = "thermalctl/zone"

// StatusSuffix is appended to the topic for the retained online/offline
// status message.
const StatusSuffix = "/status"

// Publisher sends zone transitions to a broker.
type Publisher interface {
	Publish(event Event) error
	Close() error
}

// Kind names what happened.
type Kind string

const (
	KindThrottled   Kind = "THROTTLED"
	KindZoneChanged Kind = "ZONE_CHANGED"
	KindReleased    Kind = "RELEASED"
)

// Event is one zone transition.
type Event struct {
	Timestamp   time.Time
	Kind        Kind
	Temperature zone.Temperature
	From        zone.Index
	To          zone.Index
	Active      bool
}

// FromSample builds the event for a sample. ok is false when the sample did
// not change zone.
func FromSample(s throttle.Sample) (Event, bool) {
	if !s.Changed() {
		return Event{}, false
	}

	kind := KindZoneChanged
	switch {
	case s.Previous == zone.Unthrottled:
		kind = KindThrottled
	case s.Zone == zone.Unthrottled:
		kind = KindReleased
	}

	return Event{
		Timestamp:   s.Time,
		Kind:        kind,
		Temperature: s.Temperature,
		From:        s.Previous,
		To:          s.Zone,
		Active:      s.Active,
	}, true
}

// Payload is the JSON message body.
type Payload struct {
	Thermal ThermalPayload `json:"thermal"`
}

// ThermalPayload contains the transition details.
type ThermalPayload struct {
	Timestamp      string  `json:"timestamp"`
	Event          string  `json:"event"`
	TemperatureC   float64 `json:"temperature_c"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	ThrottleActive bool    `json:"throttle_active"`
}

// FormatPayload creates the JSON payload for an event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Thermal: ThermalPayload{
			Timestamp:      event.Timestamp.UTC().Format(time.RFC3339),
			Event:          string(event.Kind),
			TemperatureC:   event.Temperature.Celsius(),
			From:           event.From.String(),
			To:             event.To.String(),
			ThrottleActive: event.Active,
		},
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.New().Wrap(ErrFormatPayload, err)
	}

	return b, nil
}
