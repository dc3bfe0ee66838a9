package sensors

import (
	"fmt"

	"tinygo.org/x/drivers/gps"

	"github.com/BryanSouza91/WingNav/noise"
)

// Epoch is one accelerometer sample plus the GNSS and barometer sample at its
// boundary, in the form the estimator consumes.
type Epoch struct {
	Control     [3]float32 // earth frame kinematic acceleration, m/s^2
	Measurement [3]float32 // east, north, barometric altitude, m
	Pressure    float32    // Pa
	Orientation noise.Quaternion
}

// Source assembles epochs from an accelerometer, a barometer and GNSS fixes.
type Source struct {
	Accel   Accelerometer
	Baro    Barometer
	Frame   *LocalFrame
	Noise   noise.Model
	Gravity float32

	IMU IMU
}

// Epoch reads the accelerometer and barometer and combines them with fix.
// Any failed reading fails the whole epoch.
func (s *Source) Epoch(fix gps.Fix) (Epoch, error) {
	if !fix.Valid {
		return Epoch{}, ErrNoFix
	}
	if err := s.IMU.Read(s.Accel); err != nil {
		return Epoch{}, err
	}
	p, err := s.Baro.Pressure()
	if err != nil {
		return Epoch{}, err
	}
	east, north := s.Frame.Fix(fix)
	return Epoch{
		Control:     s.IMU.NavAcceleration(s.Gravity),
		Measurement: [3]float32{east, north, s.Noise.Altitude(p)},
		Pressure:    p,
		Orientation: s.IMU.Orientation(),
	}, nil
}

func (e Epoch) String() string {
	return fmt.Sprintf("u=%v z=%v p=%.1f", e.Control, e.Measurement, e.Pressure)
}
