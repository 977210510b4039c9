// Package pwmfan drives the ventilation fan over a periph.io GPIO PWM pin.
// It implements hal.Fan.
package pwmfan

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/poultriscan/poultriscan/internal/domainerr"
)

// Freq is the fan's fixed PWM frequency.
const Freq = 100 * physic.Hertz

// Dev drives one PWM-capable GPIO pin as the fan output.
type Dev struct {
	pin gpio.PinIO
}

// New wires pin as the fan output and sets it to 0% duty.
func New(pin gpio.PinIO) (*Dev, error) {
	d := &Dev{pin: pin}
	if err := d.SetDuty(0); err != nil {
		return nil, fmt.Errorf("pwmfan: init: %w: %v", domainerr.ErrNotInitialized, err)
	}
	return d, nil
}

// SetDuty implements hal.Fan. pct is clamped to [0, 100]; idempotent calls
// with the same value are cheap, matching the actuator contract.
func (d *Dev) SetDuty(pct int) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	duty := gpio.Duty(pct) * gpio.DutyMax / 100
	if err := d.pin.PWM(duty, Freq); err != nil {
		return fmt.Errorf("pwmfan: set duty %d: %w", pct, err)
	}
	return nil
}
