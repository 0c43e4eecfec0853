package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    float64
		from     Unit
		to       Unit
		expected float64
	}{
		{name: "identity kilograms", value: 82.5, from: UnitKilograms, to: UnitKilograms, expected: 82.5},
		{name: "pounds to kilograms", value: 220.46226218487757, from: UnitPounds, to: UnitKilograms, expected: 100},
		{name: "kilograms to pounds", value: 100, from: UnitKilograms, to: UnitPounds, expected: 220.46226218487757},
		{name: "mg/dL to mmol/L", value: 180.182, from: UnitMgPerDl, to: UnitMmolPerL, expected: 10},
		{name: "mmol/L to mg/dL", value: 5.5, from: UnitMmolPerL, to: UnitMgPerDl, expected: 99.1001},
		{name: "celsius to fahrenheit", value: 37, from: UnitCelsius, to: UnitFahrenheit, expected: 98.6},
		{name: "fahrenheit to celsius", value: 32, from: UnitFahrenheit, to: UnitCelsius, expected: 0},
		{name: "fahrenheit freezing body", value: 98.6, from: UnitFahrenheit, to: UnitCelsius, expected: 37},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Convert(tc.value, tc.from, tc.to)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, got, 1e-9)
		})
	}
}

func TestConvertIncompatibleFamilies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from Unit
		to   Unit
	}{
		{name: "mass to temperature", from: UnitKilograms, to: UnitCelsius},
		{name: "pressure to concentration", from: UnitMmHg, to: UnitMgPerDl},
		{name: "count to mass", from: UnitBeatsPerMin, to: UnitPounds},
		{name: "unknown source unit", from: Unit("furlongs"), to: UnitKilograms},
		{name: "unknown target unit", from: UnitKilograms, to: Unit("stone")},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Convert(1, tc.from, tc.to)
			assert.ErrorIs(t, err, ErrIncompatibleUnitFamily)
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	t.Parallel()

	pairs := []struct {
		from  Unit
		to    Unit
		value float64
	}{
		{from: UnitPounds, to: UnitKilograms, value: 185.3},
		{from: UnitMgPerDl, to: UnitMmolPerL, value: 126},
		{from: UnitCelsius, to: UnitFahrenheit, value: 38.2},
	}

	for _, p := range pairs {
		there, err := Convert(p.value, p.from, p.to)
		require.NoError(t, err)
		back, err := Convert(there, p.to, p.from)
		require.NoError(t, err)
		assert.InDelta(t, p.value, back, 1e-9,
			"round trip %s -> %s -> %s drifted", p.from, p.to, p.from)
	}
}

func TestParseUnit(t *testing.T) {
	t.Parallel()

	u, err := ParseUnit("mmhg")
	require.NoError(t, err)
	assert.Equal(t, UnitMmHg, u)
	assert.Equal(t, FamilyPressure, u.Family())

	_, err = ParseUnit("cubits")
	assert.ErrorIs(t, err, ErrIncompatibleUnitFamily)
}

func TestUnitAbbreviation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "lbs", UnitPounds.Abbreviation())
	assert.Equal(t, "mg/dL", UnitMgPerDl.Abbreviation())
	assert.Equal(t, "?", Unit("bogus").Abbreviation())
}
