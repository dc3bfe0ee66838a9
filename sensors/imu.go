package sensors

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/BryanSouza91/WingNav/noise"
)

// The LSM6DS3TR driver returns values in micro-g for accel.
const microGToMS2 = 9.80665 / 1e6

// Accelerometer is implemented by *lsm6ds3tr.Device.
type Accelerometer interface {
	ReadAcceleration() (x, y, z int32, err error)
}

// IMU holds the latest accelerometer sample in m/s^2 and the tilt derived
// from it.
type IMU struct {
	AccelX float32
	AccelY float32
	AccelZ float32

	// Bias is subtracted from every sample, see Calibrate.
	Bias [3]float32

	Pitch float32
	Roll  float32
}

func toMS2[T constraints.Integer](raw T) float32 {
	return float32(float64(raw) * microGToMS2)
}

// pitchAccel calculates the pitch angle in radians from accelerometer data.
func (i *IMU) pitchAccel() float32 {
	x, y, z := float64(i.AccelX), float64(i.AccelY), float64(i.AccelZ)
	return float32(math.Atan2(-x, math.Sqrt(y*y+z*z)))
}

// rollAccel calculates the roll angle in radians from accelerometer data.
func (i *IMU) rollAccel() float32 {
	return float32(math.Atan2(float64(i.AccelY), float64(i.AccelZ)))
}

// Read takes one sample from a, removes the bias and updates pitch and roll.
func (i *IMU) Read(a Accelerometer) error {
	x, y, z, err := a.ReadAcceleration()
	if err != nil {
		return fmt.Errorf("sensors: read acceleration: %w", err)
	}
	i.Set(toMS2(x)-i.Bias[0], toMS2(y)-i.Bias[1], toMS2(z)-i.Bias[2])
	return nil
}

// Set stores a sample that is already in m/s^2 and bias free.
func (i *IMU) Set(x, y, z float32) {
	i.AccelX, i.AccelY, i.AccelZ = x, y, z
	i.Pitch = i.pitchAccel()
	i.Roll = i.rollAccel()
}

// Calibrate averages samples readings to determine the bias offsets. The
// aircraft must be stationary and level, so the expected reading is
// (0, 0, gravity).
func (i *IMU) Calibrate(a Accelerometer, samples int, gravity float32) error {
	if samples <= 0 {
		return errors.New("sensors: calibrate: no samples")
	}
	var sum [3]float64
	for n := 0; n < samples; n++ {
		x, y, z, err := a.ReadAcceleration()
		if err != nil {
			return fmt.Errorf("sensors: calibrate: %w", err)
		}
		sum[0] += float64(toMS2(x))
		sum[1] += float64(toMS2(y))
		sum[2] += float64(toMS2(z))
	}
	i.Bias = [3]float32{
		float32(sum[0] / float64(samples)),
		float32(sum[1] / float64(samples)),
		float32(sum[2]/float64(samples)) - gravity,
	}
	return nil
}

// Orientation returns the tilt orientation with zero yaw.
func (i *IMU) Orientation() noise.Quaternion {
	return noise.FromTilt(i.Roll, i.Pitch)
}

// NavAcceleration rotates the sample into the earth frame (east, north, up)
// and removes gravity, leaving the kinematic acceleration.
func (i *IMU) NavAcceleration(gravity float32) [3]float32 {
	a := i.Orientation().Rotate([3]float32{i.AccelX, i.AccelY, i.AccelZ})
	a[2] -= gravity
	return a
}
