package main

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/poultriscan/poultriscan/internal/config"
	"github.com/poultriscan/poultriscan/internal/hal"
	"github.com/poultriscan/poultriscan/internal/hal/ads1115"
	"github.com/poultriscan/poultriscan/internal/hal/aht20"
	"github.com/poultriscan/poultriscan/internal/hal/as7265x"
	"github.com/poultriscan/poultriscan/internal/hal/gpioled"
	"github.com/poultriscan/poultriscan/internal/hal/pwmfan"
)

// newHardwareBundle opens the configured I2C bus and GPIO pins and
// constructs the real driver set. host.Init enumerates every periph.io
// driver exactly once per process.
func newHardwareBundle(cfg config.Config) (*hal.Bundle, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hardware: periph host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2C.Bus)
	if err != nil {
		return nil, fmt.Errorf("hardware: open i2c bus %s: %w", cfg.I2C.Bus, err)
	}

	env, err := aht20.New(bus)
	if err != nil {
		return nil, fmt.Errorf("hardware: aht20: %w", err)
	}
	gasArray, err := ads1115.New(bus)
	if err != nil {
		return nil, fmt.Errorf("hardware: ads1115: %w", err)
	}
	spectrometer, err := as7265x.New(bus)
	if err != nil {
		return nil, fmt.Errorf("hardware: as7265x: %w", err)
	}

	fanPin := gpioreg.ByName(fmt.Sprintf("GPIO%d", cfg.GPIO.FanPin))
	if fanPin == nil {
		return nil, fmt.Errorf("hardware: fan gpio pin GPIO%d not found", cfg.GPIO.FanPin)
	}
	fan, err := pwmfan.New(fanPin.(gpio.PinIO))
	if err != nil {
		return nil, fmt.Errorf("hardware: fan: %w", err)
	}

	ledPin := gpioreg.ByName(fmt.Sprintf("GPIO%d", cfg.GPIO.LEDPin))
	if ledPin == nil {
		return nil, fmt.Errorf("hardware: led gpio pin GPIO%d not found", cfg.GPIO.LEDPin)
	}
	led, err := gpioled.New(ledPin.(gpio.PinOut))
	if err != nil {
		return nil, fmt.Errorf("hardware: led: %w", err)
	}

	return &hal.Bundle{
		Env:          env,
		Gas:          gasArray,
		Spectrometer: spectrometer,
		Fan:          fan,
		Illuminator:  led,
	}, nil
}
