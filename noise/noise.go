// Package noise turns physical sensor readings into the variances used by the
// estimator's process and measurement noise matrices.
package noise

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/BryanSouza91/WingNav/config"
)

// ErrInvalidPressure reports a pressure reading outside (0, +Inf).
var ErrInvalidPressure = errors.New("noise: invalid pressure")

// Model holds the constants of the barometric formula and the sensor
// variances the noise terms are derived from.
type Model struct {
	GasConstant          float32
	Gravity              float32
	MolarMass            float32
	ReferencePressure    float32
	ReferenceTemperature float32
	BaroVariance         float32
	AccelVariance        float32
}

// NewModel builds a Model from the estimator configuration.
func NewModel(cfg config.Config) Model {
	return Model{
		GasConstant:          cfg.GasConstant,
		Gravity:              cfg.Gravity,
		MolarMass:            cfg.MolarMass,
		ReferencePressure:    cfg.ReferencePressure,
		ReferenceTemperature: cfg.ReferenceTemperature,
		BaroVariance:         cfg.BaroVariance,
		AccelVariance:        cfg.AccelVariance,
	}
}

func sq[T constraints.Float](x T) T {
	return x * x
}

// CheckPressure returns ErrInvalidPressure unless p is positive and finite.
func CheckPressure(p float32) error {
	if !(p > 0) || math.IsInf(float64(p), 1) {
		return fmt.Errorf("%w: %v Pa", ErrInvalidPressure, p)
	}
	return nil
}

// scaleHeight is R*T0/(M*g), the altitude change per unit of ln(P0/p).
func (m Model) scaleHeight() float32 {
	return m.GasConstant * m.ReferenceTemperature / (m.MolarMass * m.Gravity)
}

// AltitudeVariance propagates the barometer variance through the linearised
// barometric formula:
//
//	R^2 T0^2 / (g^2 M^2 p^2) * sigma_baro^2
//
// The result grows without bound as pressure approaches zero. Pressures that
// fail CheckPressure, or are so small the variance does not fit a float32,
// return ErrInvalidPressure.
func (m Model) AltitudeVariance(pressure float32) (float32, error) {
	if err := CheckPressure(pressure); err != nil {
		return 0, err
	}
	v := sq(float64(m.scaleHeight())/float64(pressure)) * float64(m.BaroVariance)
	if !(v <= math.MaxFloat32) {
		return 0, fmt.Errorf("%w: altitude variance overflows at %v Pa", ErrInvalidPressure, pressure)
	}
	return float32(v), nil
}

// Altitude converts a pressure reading to altitude above the reference
// pressure level: R*T0/(M*g) * ln(P0/p).
func (m Model) Altitude(pressure float32) float32 {
	return m.scaleHeight() * float32(math.Log(float64(m.ReferencePressure/pressure)))
}

// Pressure is the inverse of Altitude.
func (m Model) Pressure(altitude float32) float32 {
	return m.ReferencePressure * float32(math.Exp(float64(-altitude/m.scaleHeight())))
}

// AccelVarianceEarth propagates the body frame accelerometer variance into
// the earth frame for orientation q. The result holds the x, y, z variances
// twice: once for the position rows and once for the velocity rows.
// q is expected to be a unit quaternion; other values are accepted and only
// make the result less accurate.
func (m Model) AccelVarianceEarth(q Quaternion) [6]float32 {
	w, r1, r2, r3 := q.W, q.X, q.Y, q.Z

	ax := (4*sq(0.5+w-sq(r2)-sq(r3)) + sq(r1)*sq(r2) + sq(r1)*sq(r3)) * m.AccelVariance
	ay := (4*sq(0.5+w-sq(r1)-sq(r3)) + sq(r2)*sq(r3) + sq(r1)*sq(r2)) * m.AccelVariance
	az := (4*sq(0.5+w-sq(r1)-sq(r2)) + sq(r1)*sq(r3) + sq(r2)*sq(r3)) * m.AccelVariance

	return [6]float32{ax, ay, az, ax, ay, az}
}
