package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Unit{Kilo, Energy}, Parse("kWh"))
	assert.Equal(t, Unit{Base, Power}, Parse("W"))
	assert.Equal(t, Unit{Base, TemperatureC}, Parse("degC"))
	assert.False(t, Parse("bogus").Valid())
}

func TestConvertPrefix(t *testing.T) {
	v, err := Convert(1.5, "kWh", "Wh")
	assert.NoError(t, err)
	assert.Equal(t, 1500.0, v)
}

func TestConvertTemperature(t *testing.T) {
	v, err := Convert(0, "degC", "degF")
	assert.NoError(t, err)
	assert.Equal(t, 32.0, v)

	v, err = Convert(212, "degF", "degC")
	assert.NoError(t, err)
	assert.InDelta(t, 100.0, v, 1e-9)
}

func TestConvertMismatchedMeasure(t *testing.T) {
	_, err := Convert(1, "W", "A")
	assert.Error(t, err)
}

func TestForType(t *testing.T) {
	assert.Equal(t, "kWh", ForType("energy"))
	assert.Equal(t, "", ForType("unknown"))
}
