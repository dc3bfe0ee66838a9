//go:build tinygo

package main

// WingNav Configuration
// Hardware mappings and loop parameters

import "machine"

// --- Hardware Interfaces ---
var (
	i2c  = machine.I2C0        // LSM6DS3TR and BMP280
	uart = machine.DefaultUART // GNSS receiver
)

const (
	I2C_FREQUENCY   = 400 * machine.KHz
	GNSS_BAUD_RATE  = 9600
	GNSS_FIX_PERIOD = 1.0 // seconds between GGA sentences (1 Hz receiver)

	CALIBRATION_SAMPLES = 1000
	STATUS_EVERY        = 10 // epochs between status lines
)
