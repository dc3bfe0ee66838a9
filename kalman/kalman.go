// Package kalman estimates position and velocity by fusing accelerometer,
// GNSS and barometer readings with a linear Kalman filter.
//
// State vector x: [x, y, z, vx, vy, vz]
// Control vector u: earth frame acceleration [ax, ay, az]
// Measurement vector z: [gnss_x, gnss_y, baro_altitude]
//
// An Estimator is not safe for concurrent use; wrap it in Locked when more
// than one goroutine drives it.
package kalman

import (
	"fmt"
	"log/slog"

	"github.com/BryanSouza91/WingNav/config"
	"github.com/BryanSouza91/WingNav/matrix"
	"github.com/BryanSouza91/WingNav/noise"
)

const (
	dimState   = 6
	dimControl = 3
	dimMeas    = 3
)

// Estimator owns the filter state.
type Estimator struct {
	cfg   config.Config
	noise noise.Model
	sign  float32
	log   *slog.Logger

	// State Vector
	x *matrix.Vector // (6x1) estimated state

	// Covariance Matrices
	p *matrix.Matrix // (6x6) estimate error covariance
	q *matrix.Matrix // (6x6) process noise covariance
	r *matrix.Matrix // (3x3) measurement noise covariance

	// System Matrices
	f  *matrix.Matrix // (6x6) state transition
	ft *matrix.Matrix // (6x6) transpose of F
	b  *matrix.Matrix // (6x3) control input
	h  *matrix.Matrix // (3x6) observation
	ht *matrix.Matrix // (6x3) transpose of H
	id *matrix.Matrix // (6x6) identity

	scratch *arena
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger used to report failed predict and update calls.
func WithLogger(l *slog.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.log = l
		}
	}
}

// New validates cfg and allocates the filter state and scratch arena.
// The matrices are zero until Initialize is called.
func New(cfg config.Config, opts ...Option) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kalman: %w", err)
	}
	e := &Estimator{
		cfg:     cfg,
		noise:   noise.NewModel(cfg),
		sign:    cfg.Control.Sign(),
		log:     slog.New(slog.DiscardHandler),
		x:       matrix.NewVector(dimState),
		p:       matrix.New(dimState, dimState),
		q:       matrix.New(dimState, dimState),
		r:       matrix.New(dimMeas, dimMeas),
		f:       matrix.New(dimState, dimState),
		ft:      matrix.New(dimState, dimState),
		b:       matrix.New(dimState, dimControl),
		h:       matrix.New(dimMeas, dimState),
		ht:      matrix.New(dimState, dimMeas),
		id:      matrix.New(dimState, dimState),
		scratch: newArena(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Initialize fills the model matrices from the configuration, zeroes the state
// and sets the covariance to InitialVariance * I. It must be called once
// before Predict and Update, and may be called again to restart the filter.
func (e *Estimator) Initialize() error {
	dt := e.cfg.Dt

	/*
		state transition
		    [[1, 0, 0, Dt, 0,  0 ],
		     [0, 1, 0, 0,  Dt, 0 ],
		     [0, 0, 1, 0,  0,  Dt],
		     [0, 0, 0, 1,  0,  0 ],
		     [0, 0, 0, 0,  1,  0 ],
		     [0, 0, 0, 0,  0,  1 ]]
	*/
	if err := matrix.SetIdentity(e.f); err != nil {
		return err
	}
	for i := 0; i < dimControl; i++ {
		e.f.Set(i, i+dimControl, dt)
	}
	if err := matrix.Transpose(e.ft, e.f); err != nil {
		return err
	}

	/*
		control input
		    [[Dt^2/2, 0,      0     ],
		     [0,      Dt^2/2, 0     ],
		     [0,      0,      Dt^2/2],
		     [Dt,     0,      0     ],
		     [0,      Dt,     0     ],
		     [0,      0,      Dt    ]]
	*/
	matrix.Clear(e.b)
	for i := 0; i < dimControl; i++ {
		e.b.Set(i, i, 0.5*dt*dt)
		e.b.Set(i+dimControl, i, dt)
	}

	// observation: position is measured directly
	matrix.Clear(e.h)
	for i := 0; i < dimMeas; i++ {
		e.h.Set(i, i, 1)
	}
	if err := matrix.Transpose(e.ht, e.h); err != nil {
		return err
	}

	if err := matrix.SetIdentity(e.id); err != nil {
		return err
	}

	a := e.cfg.AccelVariance
	e.setProcessNoise([6]float32{a, a, a, a, a, a})

	/*
		measurement noise
		    [[gnss_x, 0,      0     ],
		     [0,      gnss_y, 0     ],
		     [0,      0,      alt(p)]] * Rgain
	*/
	altVar, err := e.noise.AltitudeVariance(e.cfg.ReferencePressure)
	if err != nil {
		return err
	}
	matrix.Clear(e.r)
	e.r.Set(0, 0, e.cfg.GNSSXVariance*e.cfg.RGain)
	e.r.Set(1, 1, e.cfg.GNSSYVariance*e.cfg.RGain)
	e.r.Set(2, 2, altVar*e.cfg.RGain)

	matrix.Clear(e.x.Matrix())
	if err := matrix.SetIdentity(e.p); err != nil {
		return err
	}
	matrix.Scale(e.p, e.cfg.InitialVariance)
	return nil
}

// setProcessNoise writes Q for per-row accelerometer variances sigma:
//
//	[[Dt^4/4, 0,      0,      Dt^3/2, 0,      0     ],
//	 [0,      Dt^4/4, 0,      0,      Dt^3/2, 0     ],
//	 [0,      0,      Dt^4/4, 0,      0,      Dt^3/2],
//	 [Dt^3/2, 0,      0,      Dt^2,   0,      0     ],
//	 [0,      Dt^3/2, 0,      0,      Dt^2,   0     ],
//	 [0,      0,      Dt^3/2, 0,      0,      Dt^2  ]] * sigma * Qgain
func (e *Estimator) setProcessNoise(sigma [6]float32) {
	dt := e.cfg.Dt
	dt2 := dt * dt
	g := e.cfg.QGain

	matrix.Clear(e.q)
	for i := 0; i < dimControl; i++ {
		v := i + dimControl
		e.q.Set(i, i, 0.25*dt2*dt2*sigma[i]*g)
		e.q.Set(v, v, dt2*sigma[v]*g)
		e.q.Set(i, v, 0.5*dt2*dt*sigma[i]*g)
		e.q.Set(v, i, 0.5*dt2*dt*sigma[v]*g)
	}
}

// SetOrientation recomputes the process noise from the earth frame
// accelerometer variance at orientation q.
func (e *Estimator) SetOrientation(q noise.Quaternion) {
	e.setProcessNoise(e.noise.AccelVarianceEarth(q))
}

// NoiseModel returns the noise model the estimator was built with.
func (e *Estimator) NoiseModel() noise.Model {
	return e.noise
}

// Config returns the configuration the estimator was built with.
func (e *Estimator) Config() config.Config {
	return e.cfg
}

// State returns the current state estimate [x, y, z, vx, vy, vz].
func (e *Estimator) State() (s [dimState]float32) {
	for i := range s {
		s[i] = e.x.AtVec(i)
	}
	return s
}

// Position returns the estimated position.
func (e *Estimator) Position() [3]float32 {
	s := e.State()
	return [3]float32{s[0], s[1], s[2]}
}

// Velocity returns the estimated velocity.
func (e *Estimator) Velocity() [3]float32 {
	s := e.State()
	return [3]float32{s[3], s[4], s[5]}
}

// SetState resets the state estimate.
func (e *Estimator) SetState(s [dimState]float32) {
	for i, v := range s {
		e.x.SetVec(i, v)
	}
}

// Covariance returns a copy of the state covariance.
func (e *Estimator) Covariance() [dimState][dimState]float32 {
	return square6(e.p)
}

// SetCovariance resets the state covariance.
func (e *Estimator) SetCovariance(p [dimState][dimState]float32) {
	for r := range p {
		for c := range p[r] {
			e.p.Set(r, c, p[r][c])
		}
	}
}

// StateTransition returns a copy of F.
func (e *Estimator) StateTransition() [dimState][dimState]float32 { return square6(e.f) }

// ProcessNoise returns a copy of Q.
func (e *Estimator) ProcessNoise() [dimState][dimState]float32 { return square6(e.q) }

// ControlInput returns a copy of B.
func (e *Estimator) ControlInput() (b [dimState][dimControl]float32) {
	for r := range b {
		for c := range b[r] {
			b[r][c] = e.b.At(r, c)
		}
	}
	return b
}

// Observation returns a copy of H.
func (e *Estimator) Observation() (h [dimMeas][dimState]float32) {
	for r := range h {
		for c := range h[r] {
			h[r][c] = e.h.At(r, c)
		}
	}
	return h
}

// MeasurementNoise returns a copy of R as used by the last successful update.
func (e *Estimator) MeasurementNoise() (r [dimMeas][dimMeas]float32) {
	for i := range r {
		for j := range r[i] {
			r[i][j] = e.r.At(i, j)
		}
	}
	return r
}

func square6(m *matrix.Matrix) (out [dimState][dimState]float32) {
	for r := range out {
		for c := range out[r] {
			out[r][c] = m.At(r, c)
		}
	}
	return out
}
