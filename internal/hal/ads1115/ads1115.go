// Package ads1115 drives the four single-ended channels of an ADS1115 ADC
// carrying the MQ-series gas sensors. It implements hal.GasArray.
package ads1115

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/poultriscan/poultriscan/internal/domainerr"
	"github.com/poultriscan/poultriscan/internal/frame"
)

// Address is the ADS1115's default I2C address (ADDR tied to GND).
const Address = 0x48

const (
	regConversion = 0x00
	regConfig     = 0x01

	configOsSingle   uint16 = 0x8000
	configModeSingle uint16 = 0x0100
	configDataRate860 uint16 = 0x00E0
	configCompDisable uint16 = 0x0003

	// configGainOne selects the +-4.096V full-scale range, the gain=1
	// setting the hardware surface requires.
	configGainOne uint16 = 0x0200
	fullScaleV           = 4.096

	configMuxSingle0 uint16 = 0x4000
	configMuxSingle1 uint16 = 0x5000
	configMuxSingle2 uint16 = 0x6000
	configMuxSingle3 uint16 = 0x7000

	convPollWait = 200 * time.Microsecond
	convTimeout  = 50 * time.Millisecond
)

// channel order on the ADC, per the hardware bus surface: A0=MQ137,
// A1=MQ135, A2=MQ3, A3=MQ4.
var muxByChannel = [4]uint16{configMuxSingle0, configMuxSingle1, configMuxSingle2, configMuxSingle3}

// Dev reads the four gas-sensor channels of an ADS1115.
type Dev struct {
	d *i2c.Dev
}

// New wraps bus b at Address. The ADS1115 has no readable "is present"
// register beyond a successful transaction, so New performs one throwaway
// conversion on channel 0 to confirm the bus ack.
func New(b i2c.Bus) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: b, Addr: Address}}
	if _, err := dev.readChannel(0); err != nil {
		return nil, fmt.Errorf("ads1115: probe: %w: %v", domainerr.ErrNotInitialized, err)
	}
	return dev, nil
}

// Read implements hal.GasArray, reading all four channels in the fixed
// A0..A3 order and mapping them onto the canonical gas fields.
func (d *Dev) Read(ctx context.Context) (frame.GasReading, error) {
	var volts [4]float64
	for ch := 0; ch < 4; ch++ {
		if err := ctx.Err(); err != nil {
			return frame.GasReading{}, err
		}
		v, err := d.readChannel(ch)
		if err != nil {
			return frame.GasReading{}, fmt.Errorf("ads1115: read channel %d: %w: %v", ch, domainerr.ErrRead, err)
		}
		volts[ch] = v
	}
	return frame.GasReading{
		MQ137: volts[0],
		MQ135: volts[1],
		MQ3:   volts[2],
		MQ4:   volts[3],
	}, nil
}

func (d *Dev) readChannel(ch int) (float64, error) {
	config := configOsSingle | configModeSingle | configCompDisable |
		muxByChannel[ch] | configGainOne | configDataRate860

	buf := []byte{byte(config >> 8), byte(config)}
	if err := d.d.Tx(append([]byte{regConfig}, buf...), nil); err != nil {
		return 0, fmt.Errorf("write config: %w", err)
	}

	deadline := time.Now().Add(convTimeout)
	cfg := make([]byte, 2)
	for {
		if err := d.d.Tx([]byte{regConfig}, cfg); err != nil {
			return 0, fmt.Errorf("read config: %w", err)
		}
		if binary.BigEndian.Uint16(cfg)&configOsSingle != 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("conversion timeout")
		}
		time.Sleep(convPollWait)
	}

	raw := make([]byte, 2)
	if err := d.d.Tx([]byte{regConversion}, raw); err != nil {
		return 0, fmt.Errorf("read conversion: %w", err)
	}
	counts := int16(binary.BigEndian.Uint16(raw))
	volts := (float64(counts) / 32768.0) * fullScaleV
	if volts < 0 {
		volts = 0
	}
	return volts, nil
}
