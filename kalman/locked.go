package kalman

import (
	"sync"

	"github.com/BryanSouza91/WingNav/noise"
)

// Locked guards an Estimator with a mutex. Step holds the lock across the
// whole predict-then-update sequence so a reader never sees a half-applied
// epoch.
type Locked struct {
	mu  sync.Mutex
	est *Estimator
}

// NewLocked wraps est. est must not be used directly afterwards.
func NewLocked(est *Estimator) *Locked {
	return &Locked{est: est}
}

// Step runs one predict/update cycle under the lock.
func (l *Locked) Step(u [dimControl]float32, z [dimMeas]float32, pressure float32) ([dimState]float32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.est.Step(u, z, pressure)
}

// SetOrientation recomputes the process noise under the lock.
func (l *Locked) SetOrientation(q noise.Quaternion) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.est.SetOrientation(q)
}

// State is a safe way to read the state estimate.
func (l *Locked) State() [dimState]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.est.State()
}

// Covariance is a safe way to read the state covariance.
func (l *Locked) Covariance() [dimState][dimState]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.est.Covariance()
}
