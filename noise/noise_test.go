package noise

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/westphae/quaternion"

	"github.com/BryanSouza91/WingNav/config"
)

func TestAltitudeVarianceAtReference(t *testing.T) {
	m := NewModel(config.Default())
	v, err := m.AltitudeVariance(config.DefaultReferencePressure)
	require.NoError(t, err)
	require.InDelta(t, 17.53, v, 0.05)
}

func TestAltitudeVarianceMonotonic(t *testing.T) {
	m := NewModel(config.Default())
	prev := float32(0)
	for p := float32(config.DefaultReferencePressure); p >= 1e-11; p *= 0.8 {
		v, err := m.AltitudeVariance(p)
		require.NoError(t, err, "pressure %v", p)
		require.False(t, math.IsInf(float64(v), 0) || math.IsNaN(float64(v)), "pressure %v", p)
		require.Greater(t, v, float32(0))
		require.Greater(t, v, prev, "variance must grow as pressure drops (p=%v)", p)
		prev = v
	}
}

func TestAltitudeVarianceRejectsOverflow(t *testing.T) {
	m := NewModel(config.Default())
	for _, p := range []float32{1e-15, 1e-20, math.SmallestNonzeroFloat32, 0, -1, float32(math.NaN())} {
		_, err := m.AltitudeVariance(p)
		require.ErrorIs(t, err, ErrInvalidPressure, "pressure %v", p)
	}
}

func TestAltitude(t *testing.T) {
	m := NewModel(config.Default())
	require.InDelta(t, 0, m.Altitude(config.DefaultReferencePressure), 1e-3)
	require.Greater(t, m.Altitude(90000), float32(0))
	require.Less(t, m.Altitude(102000), float32(0))

	for _, alt := range []float32{-50, 0, 120, 1000, 3500} {
		require.InDelta(t, alt, m.Altitude(m.Pressure(alt)), 0.5)
	}
}

func TestCheckPressure(t *testing.T) {
	require.NoError(t, CheckPressure(101325))
	for _, p := range []float32{0, -1, float32(math.NaN()), float32(math.Inf(1))} {
		require.ErrorIs(t, CheckPressure(p), ErrInvalidPressure)
	}
}

func TestAccelVarianceEarth(t *testing.T) {
	m := NewModel(config.Default())
	level := m.AccelVarianceEarth(IdentityQuaternion)
	want := 9 * float32(config.DefaultAccelVariance)
	for i := 0; i < 3; i++ {
		require.InDelta(t, want, level[i], 1e-6)
		require.Equal(t, level[i], level[i+3])
	}

	tilted := m.AccelVarianceEarth(FromTilt(0.3, -0.2))
	for i := 0; i < 6; i++ {
		require.Greater(t, tilted[i], float32(0))
	}
	require.Equal(t, tilted[:3], tilted[3:])

	// not unit norm: no failure, just a different answer
	odd := m.AccelVarianceEarth(Quaternion{W: 2, X: 1, Y: 1, Z: 1})
	for _, v := range odd {
		require.False(t, math.IsNaN(float64(v)))
	}
}

func TestQuaternion(t *testing.T) {
	require.Equal(t, IdentityQuaternion, FromTilt(0, 0))
	require.InDelta(t, 1, FromTilt(0.7, -1.1).Norm(), 1e-6)
	require.Equal(t, IdentityQuaternion, Quaternion{}.Unit())
	require.InDelta(t, 1, Quaternion{W: 3, X: 4}.Unit().Norm(), 1e-6)

	const g = 9.81
	for _, tc := range []struct{ roll, pitch float64 }{
		{0, 0}, {math.Pi / 6, 0}, {0, math.Pi / 6}, {0.4, -0.3}, {-1.0, 0.8},
	} {
		// specific force measured at rest in the body frame
		body := [3]float32{
			float32(-g * math.Sin(tc.pitch)),
			float32(g * math.Sin(tc.roll) * math.Cos(tc.pitch)),
			float32(g * math.Cos(tc.roll) * math.Cos(tc.pitch)),
		}
		earth := FromTilt(float32(tc.roll), float32(tc.pitch)).Rotate(body)
		require.InDelta(t, 0, earth[0], 1e-4)
		require.InDelta(t, 0, earth[1], 1e-4)
		require.InDelta(t, g, earth[2], 1e-4)
	}
}

func TestRotateMatchesHamiltonProduct(t *testing.T) {
	for _, tc := range []struct{ roll, pitch float32 }{
		{0, 0}, {0.3, 0}, {0, 0.3}, {-0.7, 1.1}, {2.5, -0.4},
	} {
		q := FromTilt(tc.roll, tc.pitch)
		e := quaternion.Quaternion{W: float64(q.W), X: float64(q.X), Y: float64(q.Y), Z: float64(q.Z)}
		for _, v := range [][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.5, -2, 9.81}} {
			want := quaternion.Prod(e, quaternion.Quaternion{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}, e.Conj())
			got := q.Rotate(v)
			require.InDelta(t, want.X, got[0], 1e-5)
			require.InDelta(t, want.Y, got[1], 1e-5)
			require.InDelta(t, want.Z, got[2], 1e-5)
		}
	}
}
