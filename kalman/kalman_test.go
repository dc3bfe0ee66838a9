package kalman

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/BryanSouza91/WingNav/config"
	"github.com/BryanSouza91/WingNav/matrix"
	"github.com/BryanSouza91/WingNav/noise"
)

const p0 = config.DefaultReferencePressure

func newEstimator(t *testing.T, cfg config.Config, opts ...Option) *Estimator {
	t.Helper()
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	return e
}

func trace6(m [6][6]float32) (t float32) {
	for i := range m {
		t += m[i][i]
	}
	return t
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Dt = 0
	_, err := New(cfg)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestInitializeLayout(t *testing.T) {
	cfg := config.Default()
	e := newEstimator(t, cfg)
	dt := cfg.Dt

	f := e.StateTransition()
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			switch {
			case r == c:
				require.Equal(t, float32(1), f[r][c])
			case r < 3 && c == r+3:
				require.Equal(t, dt, f[r][c], "F[%d][%d]", r, c)
			default:
				require.Zero(t, f[r][c], "F[%d][%d]", r, c)
			}
		}
	}

	b := e.ControlInput()
	for r := 0; r < 6; r++ {
		for c := 0; c < 3; c++ {
			switch {
			case r == c:
				require.InDelta(t, 0.5*dt*dt, b[r][c], 1e-9)
			case r == c+3:
				require.Equal(t, dt, b[r][c])
			default:
				require.Zero(t, b[r][c])
			}
		}
	}

	h := e.Observation()
	for r := 0; r < 3; r++ {
		for c := 0; c < 6; c++ {
			if r == c {
				require.Equal(t, float32(1), h[r][c])
			} else {
				require.Zero(t, h[r][c])
			}
		}
	}

	q := e.ProcessNoise()
	sigma := cfg.AccelVariance * cfg.QGain
	for i := 0; i < 3; i++ {
		require.InDelta(t, 0.25*dt*dt*dt*dt*sigma, q[i][i], 1e-9)
		require.InDelta(t, dt*dt*sigma, q[i+3][i+3], 1e-9)
		require.InDelta(t, 0.5*dt*dt*dt*sigma, q[i][i+3], 1e-9)
	}
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			require.Equal(t, q[r][c], q[c][r])
		}
	}

	r := e.MeasurementNoise()
	require.InDelta(t, 0.1, r[0][0], 1e-7)
	require.InDelta(t, 0.1, r[1][1], 1e-7)
	require.InDelta(t, 17.53, r[2][2], 0.05)
	require.Zero(t, r[0][1])

	require.Equal(t, [6]float32{}, e.State())
	cov := e.Covariance()
	require.Equal(t, float32(6), trace6(cov))
}

func TestGainsAppliedOnce(t *testing.T) {
	cfg := config.Default()
	cfg.QGain = 2
	cfg.RGain = 3
	e := newEstimator(t, cfg)
	base := newEstimator(t, config.Default())

	q, qb := e.ProcessNoise(), base.ProcessNoise()
	require.InDelta(t, 2*qb[3][3], q[3][3], 1e-9)
	r, rb := e.MeasurementNoise(), base.MeasurementNoise()
	require.InDelta(t, 3*rb[0][0], r[0][0], 1e-6)
	require.InDelta(t, 3*rb[2][2], r[2][2], 1e-3)
}

func TestOneCycleMovesTowardMeasurement(t *testing.T) {
	e := newEstimator(t, config.Default())

	pred, err := e.Predict([3]float32{})
	require.NoError(t, err)
	predX := pred.State.AtVec(0)
	require.Zero(t, predX)
	predTrace, err := matrix.Trace(pred.Covariance)
	require.NoError(t, err)

	state, err := e.Update(pred, [3]float32{1, 0, 0}, p0)
	require.NoError(t, err)
	require.Greater(t, state[0], float32(0))
	require.Less(t, state[0], float32(1))
	require.Greater(t, state[0], predX)
	require.Equal(t, state, e.State())

	require.Less(t, trace6(e.Covariance()), predTrace)
}

// reference runs the textbook filter in float64 on gonum matrices.
func reference(t *testing.T, e *Estimator, x0 []float64, p0m *mat.Dense, u, z []float64, pressure float32) (*mat.VecDense, *mat.Dense) {
	t.Helper()
	toDense := func(rows, cols int, at func(r, c int) float32) *mat.Dense {
		d := mat.NewDense(rows, cols, nil)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				d.Set(r, c, float64(at(r, c)))
			}
		}
		return d
	}
	fa, ba, ha, qa := e.StateTransition(), e.ControlInput(), e.Observation(), e.ProcessNoise()
	F := toDense(6, 6, func(r, c int) float32 { return fa[r][c] })
	B := toDense(6, 3, func(r, c int) float32 { return ba[r][c] })
	H := toDense(3, 6, func(r, c int) float32 { return ha[r][c] })
	Q := toDense(6, 6, func(r, c int) float32 { return qa[r][c] })
	R := mat.NewDense(3, 3, nil)
	cfg := e.Config()
	R.Set(0, 0, float64(cfg.GNSSXVariance*cfg.RGain))
	R.Set(1, 1, float64(cfg.GNSSYVariance*cfg.RGain))
	altVar, err := e.NoiseModel().AltitudeVariance(pressure)
	require.NoError(t, err)
	R.Set(2, 2, float64(altVar*cfg.RGain))

	x := mat.NewVecDense(6, x0)
	var bu mat.VecDense
	bu.MulVec(B, mat.NewVecDense(3, u))
	bu.ScaleVec(float64(cfg.Control.Sign()), &bu)
	var xp mat.VecDense
	xp.MulVec(F, x)
	xp.AddVec(&xp, &bu)

	var pp mat.Dense
	pp.Product(F, p0m, F.T())
	pp.Add(&pp, Q)

	var hx mat.VecDense
	hx.MulVec(H, &xp)
	var y mat.VecDense
	y.SubVec(mat.NewVecDense(3, z), &hx)

	var s mat.Dense
	s.Product(H, &pp, H.T())
	s.Add(&s, R)
	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		panic(err)
	}
	var k mat.Dense
	k.Product(&pp, H.T(), &sInv)

	var ky mat.VecDense
	ky.MulVec(&k, &y)
	var xn mat.VecDense
	xn.AddVec(&xp, &ky)

	var kh mat.Dense
	kh.Mul(&k, H)
	ikh := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		ikh.Set(i, i, 1)
	}
	ikh.Sub(ikh, &kh)
	var pn mat.Dense
	pn.Mul(ikh, &pp)
	return &xn, &pn
}

func TestCycleMatchesReference(t *testing.T) {
	for _, conv := range []config.ControlConvention{config.ControlSubtract, config.ControlAdd} {
		t.Run(string(conv), func(t *testing.T) {
			cfg := config.Default()
			cfg.Control = conv
			e := newEstimator(t, cfg)

			x0 := [6]float32{1, -2, 30, 0.5, 0.25, -1}
			var p0m [6][6]float32
			for i := 0; i < 6; i++ {
				p0m[i][i] = float32(i + 1)
			}
			p0m[0][3], p0m[3][0] = 0.3, 0.3
			e.SetState(x0)
			e.SetCovariance(p0m)

			x0f := make([]float64, 6)
			for i, v := range x0 {
				x0f[i] = float64(v)
			}
			pd := mat.NewDense(6, 6, nil)
			for r := 0; r < 6; r++ {
				for c := 0; c < 6; c++ {
					pd.Set(r, c, float64(p0m[r][c]))
				}
			}

			u := [3]float32{0.4, -0.2, 1.5}
			z := [3]float32{1.2, -1.9, 28}
			var pressure float32 = 100000
			wantX, wantP := reference(t, e, x0f, pd, []float64{0.4, -0.2, 1.5}, []float64{1.2, -1.9, 28}, pressure)

			got, err := e.Step(u, z, pressure)
			require.NoError(t, err)
			for i := 0; i < 6; i++ {
				require.InDelta(t, wantX.AtVec(i), float64(got[i]), 1e-3, "state[%d]", i)
			}
			cov := e.Covariance()
			for r := 0; r < 6; r++ {
				for c := 0; c < 6; c++ {
					require.InDelta(t, wantP.At(r, c), float64(cov[r][c]), 1e-3, "P[%d][%d]", r, c)
				}
			}
		})
	}
}

func TestControlConvention(t *testing.T) {
	u := [3]float32{1, 2, 3}

	sub := newEstimator(t, config.Default())
	ps, err := sub.Predict(u)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Control = config.ControlAdd
	add := newEstimator(t, cfg)
	pa, err := add.Predict(u)
	require.NoError(t, err)

	dt := cfg.Dt
	for i := 0; i < 3; i++ {
		require.InDelta(t, -0.5*dt*dt*u[i], ps.State.AtVec(i), 1e-7)
		require.InDelta(t, -dt*u[i], ps.State.AtVec(i+3), 1e-7)
		require.InDelta(t, 0.5*dt*dt*u[i], pa.State.AtVec(i), 1e-7)
		require.InDelta(t, dt*u[i], pa.State.AtVec(i+3), 1e-7)
	}
}

func TestPredictDoesNotPersist(t *testing.T) {
	e := newEstimator(t, config.Default())
	e.SetState([6]float32{0, 0, 0, 1, 1, 1})
	before, cov := e.State(), e.Covariance()

	pred, err := e.Predict([3]float32{})
	require.NoError(t, err)
	require.InDelta(t, 0.1, pred.State.AtVec(0), 1e-7)

	require.Equal(t, before, e.State())
	require.Equal(t, cov, e.Covariance())
}

func TestUpdateFailureIsNonDestructive(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	e := newEstimator(t, config.Default(), WithLogger(logger))
	e.SetState([6]float32{1, 2, 3, 4, 5, 6})

	pred, err := e.Predict([3]float32{0.1, 0.2, 0.3})
	require.NoError(t, err)

	state, cov, r := e.State(), e.Covariance(), e.MeasurementNoise()
	unchanged := func() {
		t.Helper()
		require.Equal(t, state, e.State())
		require.Equal(t, cov, e.Covariance())
		require.Equal(t, r, e.MeasurementNoise())
	}

	t.Run("invalid pressure", func(t *testing.T) {
		got, err := e.Update(pred, [3]float32{1, 2, 3}, 0)
		require.ErrorIs(t, err, noise.ErrInvalidPressure)
		require.Equal(t, state, got)
		unchanged()
	})

	t.Run("pressure too small for a finite variance", func(t *testing.T) {
		got, err := e.Update(pred, [3]float32{1, 2, 3}, 1e-15)
		require.ErrorIs(t, err, noise.ErrInvalidPressure)
		require.Equal(t, state, got)
		unchanged()

		_, err = e.Step([3]float32{}, [3]float32{1, 0, 0}, 1e-15)
		require.ErrorIs(t, err, noise.ErrInvalidPressure)
		unchanged()
	})

	t.Run("non-finite prediction", func(t *testing.T) {
		x := matrix.NewVector(6)
		x.SetVec(0, float32(math.NaN()))
		_, err := e.Update(Prediction{State: x, Covariance: pred.Covariance}, [3]float32{1, 2, 3}, p0)
		require.ErrorIs(t, err, ErrNotFinite)
		unchanged()
	})

	t.Run("empty prediction", func(t *testing.T) {
		_, err := e.Update(Prediction{}, [3]float32{1, 2, 3}, p0)
		require.ErrorIs(t, err, ErrNoPrediction)
		unchanged()
	})

	t.Run("shape mismatch", func(t *testing.T) {
		bad := Prediction{State: pred.State, Covariance: matrix.Identity(3)}
		_, err := e.Update(bad, [3]float32{1, 2, 3}, p0)
		require.ErrorIs(t, err, matrix.ErrShapeMismatch)
		unchanged()
	})

	t.Run("singular residual covariance", func(t *testing.T) {
		// P' = -R on the observed block makes S = H*P'*H' + R vanish
		cov := matrix.New(6, 6)
		for i := 0; i < 3; i++ {
			cov.Set(i, i, -r[i][i])
		}
		_, err := e.Update(Prediction{State: pred.State, Covariance: cov}, [3]float32{1, 2, 3}, p0)
		require.ErrorIs(t, err, matrix.ErrSingular)
		unchanged()
	})

	require.Contains(t, logs.String(), "update failed")

	// the estimator keeps working after failures
	_, err = e.Update(pred, [3]float32{1, 2, 3}, p0)
	require.NoError(t, err)
}

func TestUpdateRecomputesR(t *testing.T) {
	e := newEstimator(t, config.Default())
	pred, err := e.Predict([3]float32{})
	require.NoError(t, err)

	var pressure float32 = 80000
	_, err = e.Update(pred, [3]float32{}, pressure)
	require.NoError(t, err)

	altVar, err := e.NoiseModel().AltitudeVariance(pressure)
	require.NoError(t, err)
	require.Equal(t, altVar*e.Config().RGain, e.MeasurementNoise()[2][2])
	require.InDelta(t, 0.1, e.MeasurementNoise()[0][0], 1e-7)
}

func TestSetOrientation(t *testing.T) {
	cfg := config.Default()
	e := newEstimator(t, cfg)
	e.SetOrientation(noise.IdentityQuaternion)

	dt := cfg.Dt
	sigma := 9 * cfg.AccelVariance
	q := e.ProcessNoise()
	for i := 0; i < 3; i++ {
		require.InDelta(t, 0.25*dt*dt*dt*dt*sigma, q[i][i], 1e-8)
		require.InDelta(t, dt*dt*sigma, q[i+3][i+3], 1e-7)
		require.Equal(t, q[i][i+3], q[i+3][i])
	}
}

func TestStationaryConvergence(t *testing.T) {
	e := newEstimator(t, config.Default())
	var wide [6][6]float32
	for i := range wide {
		wide[i][i] = 1e3
	}
	e.SetCovariance(wide)
	target := [3]float32{5, -3, 12}
	for i := 0; i < 200; i++ {
		_, err := e.Step([3]float32{}, target, p0)
		require.NoError(t, err)
	}
	pos := e.Position()
	for i := range target {
		require.InDelta(t, target[i], pos[i], 0.05)
	}
	vel := e.Velocity()
	for i := range vel {
		require.InDelta(t, 0, vel[i], 0.05)
	}
	cov := e.Covariance()
	for i := 0; i < 6; i++ {
		require.Greater(t, cov[i][i], float32(0))
	}
}

func TestStepDoesNotAllocate(t *testing.T) {
	e := newEstimator(t, config.Default())
	u := [3]float32{0.1, 0, -0.1}
	z := [3]float32{1, 1, 1}
	allocs := testing.AllocsPerRun(100, func() {
		if _, err := e.Step(u, z, p0); err != nil {
			panic(err)
		}
	})
	require.Zero(t, allocs)
}

func TestLocked(t *testing.T) {
	l := NewLocked(newEstimator(t, config.Default()))
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := l.Step([3]float32{}, [3]float32{2, 2, 2}, p0); err != nil {
					errs <- err
					return
				}
				_ = l.State()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	l.SetOrientation(noise.FromTilt(0.1, 0.1))
	pos := l.State()
	require.InDelta(t, 2, pos[0], 0.1)
	require.Greater(t, trace6(l.Covariance()), float32(0))
}

func TestErrorKinds(t *testing.T) {
	e := newEstimator(t, config.Default())
	_, err := e.Step([3]float32{}, [3]float32{}, -5)
	require.True(t, errors.Is(err, noise.ErrInvalidPressure))
	require.False(t, errors.Is(err, matrix.ErrSingular))
}
