// Package sim synthesizes sensor epochs for a vehicle flying a constant
// acceleration trajectory, with Gaussian noise on every sensor.
// Runs are reproducible from the seed.
package sim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/BryanSouza91/WingNav/noise"
	"github.com/BryanSouza91/WingNav/sensors"
)

// Config describes one simulated flight and its sensor noise.
type Config struct {
	Seed  uint64
	Steps int
	Dt    float32

	Position0 [3]float32 // east, north, up, m
	Velocity0 [3]float32 // m/s
	Accel     [3]float32 // true kinematic acceleration, m/s^2

	AccelNoise float32 // standard deviation, m/s^2
	GNSSNoise  float32 // standard deviation, m
	BaroNoise  float32 // standard deviation, Pa
}

// DefaultConfig matches the sensor noise assumed by config.Default.
func DefaultConfig() Config {
	return Config{
		Seed:       1,
		Steps:      600,
		Dt:         0.1,
		Position0:  [3]float32{0, 0, 120},
		Velocity0:  [3]float32{12, 4, 0.5},
		Accel:      [3]float32{0.2, -0.1, 0.05},
		AccelNoise: 0.35,
		GNSSNoise:  float32(math.Sqrt(0.1)),
		BaroNoise:  50,
	}
}

// Truth is the noise free state at the end of an epoch.
type Truth struct {
	Position [3]float32
	Velocity [3]float32
}

// Sample is one simulated epoch: its time, the truth and the noisy sensor readings.
type Sample struct {
	T     float32
	Truth Truth
	Epoch sensors.Epoch
}

// Simulator generates a constant acceleration trajectory and noisy epochs from a fixed seed.
type Simulator struct {
	cfg   Config
	model noise.Model

	accel distuv.Normal
	gnss  distuv.Normal
	baro  distuv.Normal

	step int
	pos  [3]float64
	vel  [3]float64
}

// New seeds one noise source per sensor from cfg.Seed.
func New(cfg Config, model noise.Model) *Simulator {
	s := &Simulator{
		cfg:   cfg,
		model: model,
		accel: distuv.Normal{Mu: 0, Sigma: float64(cfg.AccelNoise), Src: rand.NewPCG(cfg.Seed, 1)},
		gnss:  distuv.Normal{Mu: 0, Sigma: float64(cfg.GNSSNoise), Src: rand.NewPCG(cfg.Seed, 2)},
		baro:  distuv.Normal{Mu: 0, Sigma: float64(cfg.BaroNoise), Src: rand.NewPCG(cfg.Seed, 3)},
	}
	for i := 0; i < 3; i++ {
		s.pos[i] = float64(cfg.Position0[i])
		s.vel[i] = float64(cfg.Velocity0[i])
	}
	return s
}

// Initial returns the true starting state [x, y, z, vx, vy, vz].
func (s *Simulator) Initial() [6]float32 {
	p, v := s.cfg.Position0, s.cfg.Velocity0
	return [6]float32{p[0], p[1], p[2], v[0], v[1], v[2]}
}

// Next advances the trajectory by one timestep and returns the epoch observed
// at its end. The control input is the measured kinematic acceleration, to be
// added to the state.
func (s *Simulator) Next() Sample {
	dt := float64(s.cfg.Dt)
	var out Sample
	s.step++
	out.T = float32(float64(s.step) * dt)

	for i := 0; i < 3; i++ {
		a := float64(s.cfg.Accel[i])
		s.pos[i] += s.vel[i]*dt + 0.5*a*dt*dt
		s.vel[i] += a * dt
		out.Truth.Position[i] = float32(s.pos[i])
		out.Truth.Velocity[i] = float32(s.vel[i])
		out.Epoch.Control[i] = float32(a + s.accel.Rand())
	}

	out.Epoch.Measurement[0] = float32(s.pos[0] + s.gnss.Rand())
	out.Epoch.Measurement[1] = float32(s.pos[1] + s.gnss.Rand())

	p := float64(s.model.Pressure(float32(s.pos[2]))) + s.baro.Rand()
	out.Epoch.Pressure = float32(p)
	out.Epoch.Measurement[2] = s.model.Altitude(out.Epoch.Pressure)
	out.Epoch.Orientation = noise.IdentityQuaternion
	return out
}

// Run returns the remaining Steps samples.
func (s *Simulator) Run() []Sample {
	n := s.cfg.Steps - s.step
	if n < 0 {
		n = 0
	}
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Next())
	}
	return out
}
