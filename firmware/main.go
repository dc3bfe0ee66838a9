//go:build tinygo

package main

import (
	"errors"
	"machine"
	"time"

	"tinygo.org/x/drivers/gps"

	"github.com/BryanSouza91/WingNav/config"
	"github.com/BryanSouza91/WingNav/kalman"
	"github.com/BryanSouza91/WingNav/noise"
	"github.com/BryanSouza91/WingNav/sensors"
)

const Version = "0.1.0"

// Main program loop
func main() {
	time.Sleep(2 * time.Second)
	// Print startup message
	println("WingNav - Version", Version)
	println("GNSS, barometer and accelerometer position estimation for TinyGo")

	cfg := config.Default()
	// one predict/update per GGA sentence, so the filter runs at the fix rate
	cfg.Dt = GNSS_FIX_PERIOD
	led := newStatusLED(machine.LED)

	// --- Hardware Setup ---
	i2c.Configure(machine.I2CConfig{
		Frequency: I2C_FREQUENCY,
	})
	lsm, err := sensors.NewIMU(i2c)
	for err != nil {
		println("Failed to configure LSM6DS3TR:", err.Error())
		time.Sleep(time.Second)
		lsm, err = sensors.NewIMU(i2c)
	}
	println("LSM6DS3TR initialized.")

	bmp, err := sensors.NewBarometer(i2c)
	for err != nil {
		println("Failed to configure BMP280:", err.Error())
		time.Sleep(time.Second)
		bmp, err = sensors.NewBarometer(i2c)
	}
	println("BMP280 initialized.")

	uart.Configure(machine.UARTConfig{
		BaudRate: GNSS_BAUD_RATE,
	})
	gnss := gps.NewUART(uart)
	println("UART configured for GNSS input.")
	// --- End Hardware Setup ---

	src := &sensors.Source{
		Accel:   lsm,
		Baro:    sensors.Barometer{Sensor: bmp},
		Noise:   noise.NewModel(cfg),
		Gravity: cfg.Gravity,
	}

	println("Calibrating accelerometer... Keep the aircraft still and level!")
	led.set(LED_ON)
	if err := src.IMU.Calibrate(lsm, CALIBRATION_SAMPLES, cfg.Gravity); err != nil {
		println("Calibration failed:", err.Error())
	} else {
		println("Calibration complete. Bias X:", src.IMU.Bias[0], "Bias Y:", src.IMU.Bias[1], "Bias Z:", src.IMU.Bias[2])
	}

	// The first valid fix is the origin of the local frame
	println("Waiting for GNSS fix...")
	led.set(LED_SLOWFLASH)
	fix := waitForFix(&gnss, led)
	src.Frame = sensors.NewLocalFrame(float64(fix.Latitude), float64(fix.Longitude))
	println("Origin:", fix.Latitude, fix.Longitude)

	est, err := kalman.New(cfg)
	if err != nil {
		for {
			println("Invalid filter configuration:", err.Error())
			time.Sleep(time.Second)
		}
	}
	if err := est.Initialize(); err != nil {
		for {
			println("Filter initialization failed:", err.Error())
			time.Sleep(time.Second)
		}
	}
	println("Filter initialized.")
	led.set(LED_ON)

	sign := cfg.Control.Sign()
	last := fix.Time
	var epochs, skipped int
	for {
		led.update()

		sentence, err := gnss.NextSentence()
		if err != nil {
			continue
		}
		fix, err := sensors.ParseGGA(sentence)
		if err != nil {
			// RMC, GLL and the rest repeat or omit the fix
			if errors.Is(err, sensors.ErrNoFix) {
				skipped++
			}
			continue
		}
		if fix.Time.Equal(last) {
			continue
		}
		last = fix.Time

		ep, err := src.Epoch(fix)
		if err != nil {
			println("Skipping epoch:", err.Error())
			led.set(LED_FLASH)
			skipped++
			continue
		}

		est.SetOrientation(ep.Orientation)
		u := ep.Control
		for i := range u {
			u[i] *= sign
		}
		x, err := est.Step(u, ep.Measurement, ep.Pressure)
		if err != nil {
			println("Filter step failed:", err.Error())
			led.set(LED_FLASH)
			skipped++
			continue
		}
		led.set(LED_ON)

		epochs++
		if epochs%STATUS_EVERY == 0 {
			println("pos:", x[0], x[1], x[2], "vel:", x[3], x[4], x[5], "skipped:", skipped)
		}
	}
}

func waitForFix(gnss *gps.Device, led *statusLED) gps.Fix {
	for {
		led.update()
		sentence, err := gnss.NextSentence()
		if err != nil {
			continue
		}
		fix, err := sensors.ParseGGA(sentence)
		if err == nil {
			return fix
		}
	}
}
