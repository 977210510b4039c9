// Package as7265x drives the AS7265x spectral triad: three six-channel
// sensors (AS72651 NIR master, AS72652 visible, AS72653 UV) reached through a
// Qwiic I2C multiplexer and presented to the rest of the program as one
// 18-channel device. It implements hal.Spectrometer.
//
// The wire protocol is the AMS virtual-register scheme shared across the
// AS726x family: a write to the status/write/read register triggers the
// device firmware to shuttle bytes between the I2C-visible registers and
// its internal register file. There is no raw register-mapped access.
package as7265x

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/poultriscan/poultriscan/internal/domainerr"
	"github.com/poultriscan/poultriscan/internal/hal"
)

// Address is the AS7265x's fixed I2C address.
const Address = 0x49

const (
	regStatus = 0x00
	regWrite  = 0x01
	regRead   = 0x02

	statusTxValid byte = 0x02
	statusRxValid byte = 0x01

	virtLEDControl = 0x07
	virtIntegTime  = 0x05
	virtControl    = 0x04

	devSelMaster  = 0x00 // AS72651: NIR bulb, channels 13-18
	devSelVisible = 0x01 // AS72652: white/visible bulb, channels 7-12
	devSelUV      = 0x02 // AS72653: UV bulb, channels 1-6

	// virtDataBase is the first of six consecutive calibrated-float virtual
	// registers (4 bytes each) per device.
	virtDataBase = 0x14

	pollInterval = 2 * time.Millisecond
	pollTimeout  = 300 * time.Millisecond
)

// Dev is a bus-probed AS7265x triad.
type Dev struct {
	d *i2c.Dev

	channels [18]float64
}

// New probes the device at Address on bus b.
func New(b i2c.Bus) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: b, Addr: Address}}
	if _, err := dev.readVirtual(devSelMaster, virtControl); err != nil {
		return nil, fmt.Errorf("as7265x: probe: %w: %v", domainerr.ErrNotInitialized, err)
	}
	return dev, nil
}

// deviceForBulb maps a bulb to the sub-device whose LED it drives.
func deviceForBulb(b hal.Bulb) (byte, error) {
	switch b {
	case hal.BulbWhite:
		return devSelVisible, nil
	case hal.BulbUV:
		return devSelUV, nil
	case hal.BulbIR:
		return devSelMaster, nil
	default:
		return 0, fmt.Errorf("as7265x: unknown bulb %v", b)
	}
}

// EnableBulb implements hal.Spectrometer.
func (d *Dev) EnableBulb(b hal.Bulb) error {
	return d.setBulb(b, true)
}

// DisableBulb implements hal.Spectrometer.
func (d *Dev) DisableBulb(b hal.Bulb) error {
	return d.setBulb(b, false)
}

func (d *Dev) setBulb(b hal.Bulb, on bool) error {
	dev, err := deviceForBulb(b)
	if err != nil {
		return err
	}
	var v byte
	if on {
		v = 0x08 // LED_IND/DRV enable bit, a conservative low-current setting
	}
	if err := d.writeVirtual(dev, virtLEDControl, v); err != nil {
		return fmt.Errorf("as7265x: set bulb %v: %w: %v", b, domainerr.ErrRead, err)
	}
	return nil
}

// TakeMeasurement triggers a one-shot integration on all three sub-devices
// and latches their six channels each into the internal 18-value buffer.
// Must be followed by Channel calls from the same logical shot.
func (d *Dev) TakeMeasurement(ctx context.Context) error {
	for dev, base := range map[byte]int{devSelUV: 0, devSelVisible: 6, devSelMaster: 12} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.writeVirtual(dev, virtControl, 0x03); err != nil { // one-shot, all banks
			return fmt.Errorf("as7265x: trigger: %w: %v", domainerr.ErrRead, err)
		}
		if err := d.waitDataReady(ctx, dev); err != nil {
			return fmt.Errorf("as7265x: wait ready: %w: %v", domainerr.ErrRead, err)
		}
		for ch := 0; ch < 6; ch++ {
			v, err := d.readCalibratedChannel(dev, ch)
			if err != nil {
				return fmt.Errorf("as7265x: read channel: %w: %v", domainerr.ErrRead, err)
			}
			d.channels[base+ch] = v
		}
	}
	return nil
}

func (d *Dev) waitDataReady(ctx context.Context, dev byte) error {
	deadline := time.Now().Add(pollTimeout)
	for {
		v, err := d.readVirtual(dev, virtControl)
		if err != nil {
			return err
		}
		if v&0x02 != 0 { // data-ready bit
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("integration timeout")
		}
		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Dev) readCalibratedChannel(dev byte, ch int) (float64, error) {
	var raw [4]byte
	for i := 0; i < 4; i++ {
		b, err := d.readVirtual(dev, byte(virtDataBase+ch*4+i))
		if err != nil {
			return 0, err
		}
		raw[i] = b
	}
	bits := binary.BigEndian.Uint32(raw[:])
	return float64(math.Float32frombits(bits)), nil
}

// Channel returns the calibrated reading for channel n (1..18) of the last
// TakeMeasurement.
func (d *Dev) Channel(n int) (float64, error) {
	if n < 1 || n > 18 {
		return 0, fmt.Errorf("as7265x: channel %d out of range", n)
	}
	return d.channels[n-1], nil
}

// virtDevSelect is the master chip's mux-select virtual register: writing
// 0/1/2 routes every subsequent virtual register access to the NIR (master),
// visible, or UV sub-device respectively.
const virtDevSelect = 0x4F

func (d *Dev) writeVirtual(dev, addr, value byte) error {
	if err := d.selectDevice(dev); err != nil {
		return err
	}
	if err := d.waitWriteReady(); err != nil {
		return err
	}
	if err := d.d.Tx([]byte{regWrite, addr | 0x80}, nil); err != nil {
		return err
	}
	if err := d.waitWriteReady(); err != nil {
		return err
	}
	return d.d.Tx([]byte{regWrite, value}, nil)
}

func (d *Dev) readVirtual(dev, addr byte) (byte, error) {
	if err := d.selectDevice(dev); err != nil {
		return 0, err
	}
	if err := d.waitWriteReady(); err != nil {
		return 0, err
	}
	if err := d.d.Tx([]byte{regWrite, addr}, nil); err != nil {
		return 0, err
	}
	if err := d.waitReadReady(); err != nil {
		return 0, err
	}
	buf := make([]byte, 1)
	if err := d.d.Tx([]byte{regRead}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// selectDevice routes subsequent virtual register access to dev. The
// selection persists on the chip, so the master is selected explicitly too.
func (d *Dev) selectDevice(dev byte) error {
	if err := d.waitWriteReady(); err != nil {
		return err
	}
	if err := d.d.Tx([]byte{regWrite, virtDevSelect | 0x80}, nil); err != nil {
		return err
	}
	if err := d.waitWriteReady(); err != nil {
		return err
	}
	return d.d.Tx([]byte{regWrite, dev}, nil)
}

func (d *Dev) waitWriteReady() error {
	deadline := time.Now().Add(pollTimeout)
	for {
		buf := make([]byte, 1)
		if err := d.d.Tx([]byte{regStatus}, buf); err != nil {
			return err
		}
		if buf[0]&statusTxValid == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("write-ready timeout")
		}
		time.Sleep(pollInterval)
	}
}

func (d *Dev) waitReadReady() error {
	deadline := time.Now().Add(pollTimeout)
	for {
		buf := make([]byte, 1)
		if err := d.d.Tx([]byte{regStatus}, buf); err != nil {
			return err
		}
		if buf[0]&statusRxValid != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("read-ready timeout")
		}
		time.Sleep(pollInterval)
	}
}
