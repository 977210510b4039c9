// Package hal defines the driver-facing capability interfaces every
// acquisition engine reads and writes through. Construction of a concrete
// driver performs its own bus probe; a driver that fails to come up makes its
// New return an error wrapping domainerr.ErrNotInitialized and no device
// value. No stand-in object is constructed for a failed driver, and nothing
// falls back to mock data.
//
// Every interface here is single-owner: calls are synchronous, may block for
// a device-dependent duration, and must only ever be made from the one
// goroutine that currently holds the state machine's acquisition token (see
// internal/state). No HAL type does its own locking.
package hal

import (
	"context"

	"github.com/poultriscan/poultriscan/internal/frame"
)

// Bulb identifies one of the spectrometer's three illumination sources.
type Bulb int

const (
	BulbWhite Bulb = iota
	BulbUV
	BulbIR
)

func (b Bulb) String() string {
	switch b {
	case BulbWhite:
		return "white"
	case BulbUV:
		return "uv"
	case BulbIR:
		return "ir"
	default:
		return "unknown"
	}
}

// EnvSensor reads ambient temperature and humidity (AHT20).
type EnvSensor interface {
	Read(ctx context.Context) (frame.EnvReading, error)
}

// GasArray reads the four MQ-sensor voltages behind an ADS1115 ADC.
type GasArray interface {
	Read(ctx context.Context) (frame.GasReading, error)
}

// Spectrometer drives the AS7265x triad: bulb enable/disable, on-device
// integration, and per-channel reads of the last integration.
type Spectrometer interface {
	EnableBulb(b Bulb) error
	DisableBulb(b Bulb) error
	TakeMeasurement(ctx context.Context) error
	// Channel returns the calibrated reading for channel n (1..18) of the
	// last TakeMeasurement.
	Channel(n int) (float64, error)
}

// Fan is the PWM-driven ventilation actuator, duty 0..100.
type Fan interface {
	SetDuty(pct int) error
}

// Illuminator is the digital strip-LED actuator.
type Illuminator interface {
	Set(on bool) error
}
