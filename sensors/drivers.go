package sensors

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/bmp280"
	"tinygo.org/x/drivers/lsm6ds3tr"
)

var (
	ErrIMUNotConnected  = errors.New("sensors: LSM6DS3TR not connected")
	ErrBaroNotConnected = errors.New("sensors: BMP280 not connected")
)

// NewIMU configures the LSM6DS3TR on bus. The I2C bus must already be
// configured.
func NewIMU(bus drivers.I2C) (*lsm6ds3tr.Device, error) {
	lsm := lsm6ds3tr.New(bus)
	err := lsm.Configure(lsm6ds3tr.Configuration{
		AccelRange:      lsm6ds3tr.ACCEL_8G,
		AccelSampleRate: lsm6ds3tr.ACCEL_SR_104,
		GyroRange:       lsm6ds3tr.GYRO_1000DPS,
		GyroSampleRate:  lsm6ds3tr.GYRO_SR_104,
	})
	if err != nil {
		return nil, fmt.Errorf("sensors: configure LSM6DS3TR: %w", err)
	}
	if !lsm.Connected() {
		return nil, ErrIMUNotConnected
	}
	return lsm, nil
}

// NewBarometer configures the BMP280 on bus for continuous, heavily
// oversampled pressure readings.
func NewBarometer(bus drivers.I2C) (*bmp280.Device, error) {
	bmp := bmp280.New(bus)
	if !bmp.Connected() {
		return nil, ErrBaroNotConnected
	}
	bmp.Configure(bmp280.STANDBY_63MS, bmp280.FILTER_4X, bmp280.SAMPLING_2X, bmp280.SAMPLING_16X, bmp280.MODE_NORMAL)
	return &bmp, nil
}
