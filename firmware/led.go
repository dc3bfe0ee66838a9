//go:build tinygo

package main

/*
slowly flash while waiting for the first GNSS fix, stay solid while calibrating
and while the filter is tracking, flash whenever the last epoch was skipped
*/

import (
	"machine"
	"time"
)

// Define LED patterns
type ledPattern int

const (
	LED_OFF ledPattern = iota
	LED_ON
	LED_SLOWFLASH
	LED_FLASH
)

// half period of each flashing pattern
var ledPeriods = [...]time.Duration{
	LED_SLOWFLASH: 250 * time.Millisecond,
	LED_FLASH:     100 * time.Millisecond,
}

type statusLED struct {
	pin        machine.Pin
	pattern    ledPattern
	lastToggle time.Time
	isOn       bool
}

func newStatusLED(pin machine.Pin) *statusLED {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return &statusLED{pin: pin, lastToggle: time.Now()}
}

func (l *statusLED) set(p ledPattern) {
	if l.pattern == p {
		return
	}
	l.pattern = p
	l.update()
}

// update drives the pin for the current pattern. Call it once per loop.
func (l *statusLED) update() {
	switch l.pattern {
	case LED_OFF:
		l.pin.Low()
		l.isOn = false
	case LED_ON:
		l.pin.High()
		l.isOn = true
	default:
		now := time.Now()
		if now.Sub(l.lastToggle) < ledPeriods[l.pattern] {
			return
		}
		l.isOn = !l.isOn
		l.pin.Set(l.isOn)
		l.lastToggle = now
	}
}
