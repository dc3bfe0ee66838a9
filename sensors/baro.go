package sensors

import (
	"fmt"

	"github.com/BryanSouza91/WingNav/noise"
)

// PressureSensor is implemented by *bmp280.Device. Readings are in milli
// pascals.
type PressureSensor interface {
	ReadPressure() (int32, error)
}

// Barometer converts PressureSensor readings to pascals.
type Barometer struct {
	Sensor PressureSensor
}

// Pressure returns the static pressure in Pa. A reading that cannot be a
// pressure (zero, as returned by an unconfigured BMP280) is an error wrapping
// noise.ErrInvalidPressure.
func (b Barometer) Pressure() (float32, error) {
	mpa, err := b.Sensor.ReadPressure()
	if err != nil {
		return 0, fmt.Errorf("sensors: read pressure: %w", err)
	}
	p := float32(mpa) / 1000
	if err := noise.CheckPressure(p); err != nil {
		return 0, fmt.Errorf("sensors: read pressure: %w", err)
	}
	return p, nil
}
