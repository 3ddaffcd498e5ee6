package zone_test

import (
	"testing"

	"codeberg.org/mutker/thermalctl/internal/zone"
	"github.com/stretchr/testify/assert"
)

func c(deg float64) zone.Temperature {
	return zone.FromCelsius(deg)
}

// threeZones has trips 40/50/60 and resets 35/45/55.
func threeZones() []zone.Zone {
	return []zone.Zone{
		{FreqLittle: 1500, FreqBig: 2000, Trip: c(40), Reset: c(35)},
		{FreqLittle: 1200, FreqBig: 1600, Trip: c(50), Reset: c(45)},
		{FreqLittle: 900, FreqBig: 1000, Trip: c(60), Reset: c(55)},
	}
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name string
		temp float64
		prev zone.Index
		want zone.Index
	}{
		{"cool below first trip", 38, zone.Unthrottled, zone.Unthrottled},
		{"at first trip", 40, zone.Unthrottled, 0},
		{"above first trip", 42, zone.Unthrottled, 0},
		{"just below second trip from cool", 49.99, zone.Unthrottled, 0},
		{"at second trip from cool", 50, zone.Unthrottled, 1},
		{"at second trip from zone 0", 50, 0, 1},
		{"jump straight to top", 75, zone.Unthrottled, 2},
		{"at top trip", 60, 1, 2},

		{"zone 1 holds above its reset", 46, 1, 1},
		{"zone 1 holds just below next trip", 59, 1, 1},
		{"zone 1 leaves at its reset", 45, 1, 0},
		{"zone 1 leaves below its reset", 44, 1, 0},
		{"zone 2 holds above its reset", 56, 2, 2},
		{"zone 2 steps to zone 1", 52, 2, 1},
		{"zone 2 drops two zones", 40, 2, 0},
		{"zone 2 drops below first trip", 37, 2, 0},

		{"zone 0 holds below its trip", 36, 0, 0},
		{"zone 0 cools down", 34, 0, zone.Unthrottled},
		{"zone 0 cools down at reset", 35, 0, zone.Unthrottled},
		{"zone 2 cools down", 30, 2, zone.Unthrottled},
		{"cool stays cool at reset", 35, zone.Unthrottled, zone.Unthrottled},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := zone.Classify(c(tc.temp), tc.prev, threeZones())
			assert.Equal(t, tc.want, got, "classify(%v, %v)", tc.temp, tc.prev)
		})
	}
}

func TestClassifyEmpty(t *testing.T) {
	assert.Equal(t, zone.Unthrottled, zone.Classify(c(90), zone.Unthrottled, nil))
	assert.Equal(t, zone.Unthrottled, zone.Classify(c(90), 3, []zone.Zone{}))
}

func TestClassifySingleZone(t *testing.T) {
	zones := []zone.Zone{{FreqLittle: 1000, Trip: c(70), Reset: c(65)}}

	assert.Equal(t, zone.Unthrottled, zone.Classify(c(68), zone.Unthrottled, zones))
	assert.Equal(t, zone.Index(0), zone.Classify(c(70), zone.Unthrottled, zones))
	assert.Equal(t, zone.Index(0), zone.Classify(c(66), 0, zones))
	assert.Equal(t, zone.Unthrottled, zone.Classify(c(65), 0, zones))
}

func TestClassifyHysteresisSequence(t *testing.T) {
	zones := threeZones()
	samples := []struct {
		temp float64
		want zone.Index
	}{
		{30, zone.Unthrottled},
		{39, zone.Unthrottled},
		{41, 0},
		{39, 0},
		{51, 1},
		{47, 1},
		{49, 1},
		{44, 0},
		{38, 0},
		{35, zone.Unthrottled},
		{39, zone.Unthrottled},
	}

	prev := zone.Unthrottled
	for i, s := range samples {
		prev = zone.Classify(c(s.temp), prev, zones)
		assert.Equal(t, s.want, prev, "sample %d (%v°C)", i, s.temp)
	}
}

func TestClassifyTopZoneIsTerminal(t *testing.T) {
	zones := make([]zone.Zone, zone.MaxZones+4)
	for i := range zones {
		zones[i] = zone.Zone{
			FreqLittle: 1000,
			Trip:       c(float64(40 + i*5)),
			Reset:      c(float64(38 + i*5)),
		}
	}

	got := zone.Classify(c(500), zone.Unthrottled, zones)
	assert.Equal(t, zone.Index(zone.MaxZones-1), got)
}

func TestTemperatureConversions(t *testing.T) {
	assert.Equal(t, zone.Temperature(4250), zone.FromCelsius(42.5))
	assert.Equal(t, zone.Temperature(-125), zone.FromCelsius(-1.25))
	assert.Equal(t, zone.Temperature(4250), zone.FromMilliCelsius(42500))
	assert.Equal(t, zone.Temperature(4251), zone.FromMilliCelsius(42505))
	assert.Equal(t, zone.Temperature(-125), zone.FromMilliCelsius(-1250))
	assert.InDelta(t, 42.5, zone.Temperature(4250).Celsius(), 1e-9)
	assert.Equal(t, "42.5°C", zone.Temperature(4250).String())
}

func TestIndexString(t *testing.T) {
	assert.Equal(t, "unthrottled", zone.Unthrottled.String())
	assert.Equal(t, "zone03", zone.Index(3).String())
	assert.True(t, zone.Index(15).Valid())
	assert.False(t, zone.Index(16).Valid())
	assert.True(t, zone.Unthrottled.Valid())
}
