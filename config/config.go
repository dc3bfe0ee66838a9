// Package config holds every externally supplied constant of the estimator:
// timestep, physical constants, sensor variances and tuning gains.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// --- Timing ---
const (
	DefaultDt = 0.1 // timestep, unit: seconds
)

// --- Physical constants ---
const (
	DefaultGravity     = 9.81      // gravitational acceleration, unit: m/s^2
	DefaultGasConstant = 8.31432e3 // universal gas constant, unit: N m / (kmol K)
	DefaultMolarMass   = 28.9644   // mean molecular weight of air at sea level, unit: kg/kmol

	// Reference values, must be taken on the day of the flight
	DefaultReferencePressure    = 101325.0 // unit: Pa
	DefaultReferenceTemperature = 290.0    // unit: K
)

// --- Sensor noise ---
const (
	DefaultAccelVariance = 0.35 * 0.35 // body frame accelerometer variance, (m/s^2)^2
	DefaultBaroVariance  = 50.0 * 50.0 // barometer variance, Pa^2
	DefaultGNSSXVariance = 0.1         // m^2
	DefaultGNSSYVariance = 0.1         // m^2
)

// --- Tuning ---
const (
	DefaultQGain           = 1.0
	DefaultRGain           = 1.0
	DefaultInitialVariance = 1.0
)

// ControlConvention selects the sign of the control contribution in the
// prediction step.
type ControlConvention string

const (
	// ControlSubtract predicts F*x - B*u. This is the convention the filter
	// has always flown with; confirm it against the sensor frame before
	// changing it.
	ControlSubtract ControlConvention = "subtract"
	// ControlAdd predicts F*x + B*u.
	ControlAdd ControlConvention = "add"
)

// Sign returns -1 for ControlSubtract and +1 for ControlAdd.
func (c ControlConvention) Sign() float32 {
	if c == ControlAdd {
		return 1
	}
	return -1
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid value")

// Config is the single configuration surface of the estimator.
// QGain and RGain are each applied exactly once, to Q and R respectively.
type Config struct {
	Dt float32 `yaml:"dt"`

	Gravity              float32 `yaml:"gravity"`
	GasConstant          float32 `yaml:"gasConstant"`
	MolarMass            float32 `yaml:"molarMass"`
	ReferencePressure    float32 `yaml:"referencePressure"`
	ReferenceTemperature float32 `yaml:"referenceTemperature"`

	AccelVariance float32 `yaml:"accelVariance"`
	BaroVariance  float32 `yaml:"baroVariance"`
	GNSSXVariance float32 `yaml:"gnssXVariance"`
	GNSSYVariance float32 `yaml:"gnssYVariance"`

	QGain           float32 `yaml:"qGain"`
	RGain           float32 `yaml:"rGain"`
	InitialVariance float32 `yaml:"initialVariance"`

	Control ControlConvention `yaml:"control"`
}

// Default returns the flight defaults.
func Default() Config {
	return Config{
		Dt:                   DefaultDt,
		Gravity:              DefaultGravity,
		GasConstant:          DefaultGasConstant,
		MolarMass:            DefaultMolarMass,
		ReferencePressure:    DefaultReferencePressure,
		ReferenceTemperature: DefaultReferenceTemperature,
		AccelVariance:        DefaultAccelVariance,
		BaroVariance:         DefaultBaroVariance,
		GNSSXVariance:        DefaultGNSSXVariance,
		GNSSYVariance:        DefaultGNSSYVariance,
		QGain:                DefaultQGain,
		RGain:                DefaultRGain,
		InitialVariance:      DefaultInitialVariance,
		Control:              ControlSubtract,
	}
}

// Load reads a YAML file on top of Default and validates the result.
// Keys missing from the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the filter cannot run with.
func (c Config) Validate() error {
	positive := []struct {
		name string
		v    float32
	}{
		{"dt", c.Dt},
		{"gravity", c.Gravity},
		{"gasConstant", c.GasConstant},
		{"molarMass", c.MolarMass},
		{"referencePressure", c.ReferencePressure},
		{"referenceTemperature", c.ReferenceTemperature},
		{"accelVariance", c.AccelVariance},
		{"baroVariance", c.BaroVariance},
		{"gnssXVariance", c.GNSSXVariance},
		{"gnssYVariance", c.GNSSYVariance},
		{"qGain", c.QGain},
		{"rGain", c.RGain},
		{"initialVariance", c.InitialVariance},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(float64(p.v), 0) {
			return fmt.Errorf("%w: %s must be positive and finite, got %v", ErrInvalid, p.name, p.v)
		}
	}
	switch c.Control {
	case ControlSubtract, ControlAdd:
	default:
		return fmt.Errorf("%w: control must be %q or %q, got %q", ErrInvalid, ControlSubtract, ControlAdd, c.Control)
	}
	return nil
}
