package kalman

import (
	"errors"
	"fmt"
	"math"

	"github.com/BryanSouza91/WingNav/matrix"
)

var (
	// ErrNoPrediction is returned by Update when the prediction is empty.
	ErrNoPrediction = errors.New("kalman: empty prediction")
	// ErrNotFinite is returned by Update when the posterior holds NaN or Inf.
	ErrNotFinite = errors.New("kalman: non-finite posterior")
)

// Prediction is the a priori state and covariance produced by Predict.
// Both point into the estimator's scratch arena and stay valid until the next
// call to Predict on the same estimator.
type Prediction struct {
	State      *matrix.Vector // (6x1)
	Covariance *matrix.Matrix // (6x6)
}

// Predict propagates the state with the control input u:
//
//	x' = F*x -/+ B*u   (sign from config.ControlConvention)
//	P' = F*P*F' + Q
//
// The persisted state and covariance are not modified.
func (e *Estimator) Predict(u [dimControl]float32) (Prediction, error) {
	if err := e.predict(u); err != nil {
		e.log.Warn("predict failed", "err", err)
		return Prediction{}, fmt.Errorf("kalman: predict: %w", err)
	}
	return Prediction{State: e.scratch.xPred, Covariance: e.scratch.pPred}, nil
}

func (e *Estimator) predict(u [dimControl]float32) error {
	a := e.scratch
	for i, v := range u {
		a.u.SetVec(i, v)
	}

	if err := matrix.Multiply(a.fx.Matrix(), e.f, e.x.Matrix()); err != nil {
		return err
	}
	if err := matrix.Multiply(a.bu.Matrix(), e.b, a.u.Matrix()); err != nil {
		return err
	}
	matrix.Scale(a.bu.Matrix(), e.sign)
	if err := matrix.Add(a.xPred.Matrix(), a.fx.Matrix(), a.bu.Matrix()); err != nil {
		return err
	}

	if err := matrix.Multiply(a.fp, e.f, e.p); err != nil {
		return err
	}
	if err := matrix.Multiply(a.fpft, a.fp, e.ft); err != nil {
		return err
	}
	return matrix.Add(a.pPred, a.fpft, e.q)
}

// Update corrects the prediction with measurement z taken at pressure
// (Pa) and persists the result:
//
//	R[2][2] = altitude variance at pressure * Rgain
//	y = z - H*x'
//	S = H*P'*H' + R
//	K = P'*H'*inv(S)
//	x = x' + K*y
//	P = (I - K*H)*P'
//
// Any failure (invalid pressure, shape mismatch, singular S, non-finite
// posterior) leaves the state, covariance and R exactly as they were.
func (e *Estimator) Update(p Prediction, z [dimMeas]float32, pressure float32) ([dimState]float32, error) {
	if err := e.update(p, z, pressure); err != nil {
		e.log.Warn("update failed", "err", err, "pressure", pressure)
		return e.State(), fmt.Errorf("kalman: update: %w", err)
	}
	return e.State(), nil
}

func (e *Estimator) update(p Prediction, z [dimMeas]float32, pressure float32) error {
	if p.State == nil || p.Covariance == nil {
		return ErrNoPrediction
	}
	altVar, err := e.noise.AltitudeVariance(pressure)
	if err != nil {
		return err
	}
	a := e.scratch

	if err := matrix.Copy(a.r, e.r); err != nil {
		return err
	}
	a.r.Set(2, 2, altVar*e.cfg.RGain)

	for i, v := range z {
		a.z.SetVec(i, v)
	}
	if err := matrix.Multiply(a.hx.Matrix(), e.h, p.State.Matrix()); err != nil {
		return err
	}
	if err := matrix.Subtract(a.y.Matrix(), a.z.Matrix(), a.hx.Matrix()); err != nil {
		return err
	}

	if err := matrix.Multiply(a.hp, e.h, p.Covariance); err != nil {
		return err
	}
	if err := matrix.Multiply(a.hpht, a.hp, e.ht); err != nil {
		return err
	}
	if err := matrix.Add(a.s, a.hpht, a.r); err != nil {
		return err
	}
	if err := matrix.Invert3x3(a.sInv, a.s); err != nil {
		return err
	}

	if err := matrix.Multiply(a.pht, p.Covariance, e.ht); err != nil {
		return err
	}
	if err := matrix.Multiply(a.k, a.pht, a.sInv); err != nil {
		return err
	}

	if err := matrix.Multiply(a.ky.Matrix(), a.k, a.y.Matrix()); err != nil {
		return err
	}
	if err := matrix.Add(a.xNew.Matrix(), p.State.Matrix(), a.ky.Matrix()); err != nil {
		return err
	}

	if err := matrix.Multiply(a.kh, a.k, e.h); err != nil {
		return err
	}
	if err := matrix.Subtract(a.ikh, e.id, a.kh); err != nil {
		return err
	}
	if err := matrix.Multiply(a.pNew, a.ikh, p.Covariance); err != nil {
		return err
	}

	if !finite(a.xNew.Matrix()) || !finite(a.pNew) {
		return ErrNotFinite
	}

	// every step succeeded: commit
	if err := matrix.Copy(e.x.Matrix(), a.xNew.Matrix()); err != nil {
		return err
	}
	if err := matrix.Copy(e.p, a.pNew); err != nil {
		return err
	}
	return matrix.Copy(e.r, a.r)
}

func finite(m *matrix.Matrix) bool {
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			if v := float64(m.At(r, c)); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Step runs one Predict followed by one Update for a sensor epoch.
func (e *Estimator) Step(u [dimControl]float32, z [dimMeas]float32, pressure float32) ([dimState]float32, error) {
	p, err := e.Predict(u)
	if err != nil {
		return e.State(), err
	}
	return e.Update(p, z, pressure)
}
