package sim

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/BryanSouza91/WingNav/config"
	"github.com/BryanSouza91/WingNav/noise"
)

// Stepper is implemented by *kalman.Estimator and *kalman.Locked.
type Stepper interface {
	Step(u [3]float32, z [3]float32, pressure float32) ([6]float32, error)
}

type orienter interface {
	SetOrientation(q noise.Quaternion)
}

// Report holds root mean square errors against the true trajectory.
type Report struct {
	Steps    int
	Failures int

	PositionRMS [3]float64 // filtered
	VelocityRMS [3]float64 // filtered
	RawRMS      [3]float64 // GNSS east, north and barometric altitude

	Final [6]float32
}

func (r Report) String() string {
	return fmt.Sprintf("steps=%d failures=%d position=%.3f velocity=%.3f raw=%.3f",
		r.Steps, r.Failures, r.PositionRMS, r.VelocityRMS, r.RawRMS)
}

// Evaluate feeds samples through est and measures the errors of every sample
// after the first skip. conv is the estimator's control convention; the
// control input is negated for ControlSubtract so both conventions see the
// same physical acceleration. Failed steps are counted and skipped.
func Evaluate(est Stepper, samples []Sample, conv config.ControlConvention, skip int) (Report, error) {
	if skip < 0 || skip >= len(samples) {
		return Report{}, errors.New("sim: nothing to evaluate")
	}
	sign := conv.Sign()
	o, canOrient := est.(orienter)

	var rep Report
	n := len(samples) - skip
	var posErr, velErr, rawErr [3][]float64
	for i := range posErr {
		posErr[i] = make([]float64, 0, n)
		velErr[i] = make([]float64, 0, n)
		rawErr[i] = make([]float64, 0, n)
	}

	for k, s := range samples {
		if canOrient {
			o.SetOrientation(s.Epoch.Orientation)
		}
		u := s.Epoch.Control
		for i := range u {
			u[i] *= sign
		}
		x, err := est.Step(u, s.Epoch.Measurement, s.Epoch.Pressure)
		rep.Steps++
		if err != nil {
			rep.Failures++
			continue
		}
		rep.Final = x
		if k < skip {
			continue
		}
		for i := 0; i < 3; i++ {
			posErr[i] = append(posErr[i], float64(x[i]-s.Truth.Position[i]))
			velErr[i] = append(velErr[i], float64(x[i+3]-s.Truth.Velocity[i]))
			rawErr[i] = append(rawErr[i], float64(s.Epoch.Measurement[i]-s.Truth.Position[i]))
		}
	}
	for i := 0; i < 3; i++ {
		rep.PositionRMS[i] = rms(posErr[i])
		rep.VelocityRMS[i] = rms(velErr[i])
		rep.RawRMS[i] = rms(rawErr[i])
	}
	return rep, nil
}

func rms(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Norm(v, 2) / math.Sqrt(float64(len(v)))
}
