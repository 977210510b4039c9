// Package aht20 drives the AHT20 temperature/humidity sensor over I2C. It
// implements hal.EnvSensor.
package aht20

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/poultriscan/poultriscan/internal/domainerr"
	"github.com/poultriscan/poultriscan/internal/frame"
)

// Address is the AHT20's fixed I2C address.
const Address = 0x38

const (
	cmdStatus     byte = 0x71
	cmdInitialize byte = 0xBE
	cmdMeasure    byte = 0xAC
	cmdSoftReset  byte = 0xBA

	bitBusy        byte = 1 << 7
	bitInitialized byte = 1 << 3
)

var (
	argsInitialize = []byte{cmdInitialize, 0x08, 0x00}
	argsMeasure    = []byte{cmdMeasure, 0x33, 0x00}
)

const crc8Polynomial = uint8(0b00110001)

const (
	measureTriggerWait  = 80 * time.Millisecond
	measureReadTimeout  = 150 * time.Millisecond
	measureWaitInterval = 10 * time.Millisecond
)

// Dev is a bus-probed AHT20 device. A Dev returned by New has already been
// calibrated; construction failure never produces a live Dev, only an error
// wrapping domainerr.ErrNotInitialized.
type Dev struct {
	d *i2c.Dev
}

// New probes the device at Address on bus b and calibrates it if needed.
func New(b i2c.Bus) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: b, Addr: Address}}
	initialized, err := dev.isInitialized()
	if err != nil {
		return nil, fmt.Errorf("aht20: read status: %w: %v", domainerr.ErrNotInitialized, err)
	}
	if !initialized {
		if err := dev.initialize(); err != nil {
			return nil, fmt.Errorf("aht20: calibrate: %w: %v", domainerr.ErrNotInitialized, err)
		}
	}
	return dev, nil
}

// Read implements hal.EnvSensor.
func (d *Dev) Read(ctx context.Context) (frame.EnvReading, error) {
	if err := d.d.Tx(argsMeasure, nil); err != nil {
		return frame.EnvReading{}, fmt.Errorf("aht20: trigger measurement: %w: %v", domainerr.ErrRead, err)
	}
	select {
	case <-time.After(measureTriggerWait):
	case <-ctx.Done():
		return frame.EnvReading{}, ctx.Err()
	}

	deadline := time.Now().Add(measureReadTimeout)
	data := make([]byte, 7)
	for time.Now().Before(deadline) {
		if err := d.d.Tx(nil, data); err != nil {
			return frame.EnvReading{}, fmt.Errorf("aht20: read measurement: %w: %v", domainerr.ErrRead, err)
		}
		if calculateCRC8(data[0:6]) != data[6] {
			return frame.EnvReading{}, fmt.Errorf("aht20: crc mismatch: %w", domainerr.ErrRead)
		}
		if data[0]&bitInitialized == 0 {
			return frame.EnvReading{}, fmt.Errorf("aht20: not initialized: %w", domainerr.ErrNotInitialized)
		}
		if data[0]&bitBusy == 0 {
			hRaw := uint32(data[1])<<12 | uint32(data[2])<<4 | uint32(data[3])>>4
			tRaw := (uint32(data[3])&0xF)<<16 | uint32(data[4])<<8 | uint32(data[5])
			humidity := float64(hRaw) / 1048576.0 * 100.0
			temp := (float64(tRaw)/1048576.0)*200 - 50.0
			return frame.EnvReading{TempC: temp, HumidityPct: humidity}, nil
		}
		select {
		case <-time.After(measureWaitInterval):
		case <-ctx.Done():
			return frame.EnvReading{}, ctx.Err()
		}
	}
	return frame.EnvReading{}, fmt.Errorf("aht20: measurement read timed out: %w", domainerr.ErrRead)
}

// SoftReset reboots and re-calibrates the sensor.
func (d *Dev) SoftReset() error {
	if err := d.d.Tx([]byte{cmdSoftReset}, nil); err != nil {
		return fmt.Errorf("aht20: soft reset: %w", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := d.initialize(); err != nil {
		return fmt.Errorf("aht20: calibrate after reset: %w", err)
	}
	return nil
}

func (d *Dev) isInitialized() (bool, error) {
	data := make([]byte, 1)
	if err := d.d.Tx([]byte{cmdStatus}, data); err != nil {
		return false, err
	}
	return data[0]&bitInitialized != 0, nil
}

func (d *Dev) initialize() error {
	if err := d.d.Tx(argsInitialize, nil); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

func calculateCRC8(data []byte) uint8 {
	var crc uint8 = 0xFF
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ crc8Polynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
