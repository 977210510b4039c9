// Package gpioled drives the strip LED over a digital periph.io GPIO pin.
// It implements hal.Illuminator.
package gpioled

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/poultriscan/poultriscan/internal/domainerr"
)

// Dev drives one digital GPIO pin as the illuminator output.
type Dev struct {
	pin gpio.PinOut
}

// New wires pin as the illuminator output and sets it off.
func New(pin gpio.PinOut) (*Dev, error) {
	d := &Dev{pin: pin}
	if err := d.Set(false); err != nil {
		return nil, fmt.Errorf("gpioled: init: %w: %v", domainerr.ErrNotInitialized, err)
	}
	return d, nil
}

// Set implements hal.Illuminator.
func (d *Dev) Set(on bool) error {
	if err := d.pin.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("gpioled: set %v: %w", on, err)
	}
	return nil
}
