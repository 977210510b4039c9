// Package fusion sequences the spectrometer's three illumination passes and
// merges them with the environmental and gas readings into one Frame.
package fusion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/hal"
	"github.com/poultriscan/poultriscan/internal/sched"
)

// Timing constants from the stabilization protocol.
const (
	TStab   = 2 * time.Second
	TSettle = 300 * time.Millisecond
)

// Reader sequences bulbs and reads the full sensor set through one Bundle.
type Reader struct {
	bundle *hal.Bundle

	logOnce sync.Once
	logFn   func(format string, args ...any)
}

// New builds a Reader over bundle. logFn receives the once-per-process
// channel-read-failure notice; pass nil to discard it.
func New(bundle *hal.Bundle, logFn func(format string, args ...any)) *Reader {
	if logFn == nil {
		logFn = func(string, ...any) {}
	}
	return &Reader{bundle: bundle, logFn: logFn}
}

// ReadSpectrum produces an 18-channel frame following the white -> IR -> UV
// bulb sequence. When ledsOn is false no bulb is enabled during any pass,
// the only way to obtain a dark reference; the three-pass structure and
// timing are preserved regardless so the two are comparable.
func (r *Reader) ReadSpectrum(ctx context.Context, ledsOn bool) ([]float64, error) {
	out := make([]float64, frame.SpectralChannels)
	failed := false

	run := func(bulb hal.Bulb, lo, hi int) error {
		if ledsOn {
			if err := r.bundle.Illuminator.Set(true); err != nil {
				return err
			}
			if err := r.bundle.Spectrometer.EnableBulb(bulb); err != nil {
				return err
			}
		}
		if err := sched.Sleep(ctx, TStab); err != nil {
			return err
		}
		if err := r.bundle.Spectrometer.TakeMeasurement(ctx); err != nil {
			failed = true
			return nil
		}
		for ch := lo; ch <= hi; ch++ {
			v, err := r.bundle.Spectrometer.Channel(ch)
			if err != nil {
				failed = true
				continue
			}
			out[ch-1] = v
		}
		if ledsOn {
			if err := r.bundle.Spectrometer.DisableBulb(bulb); err != nil {
				return err
			}
		}
		return nil
	}

	err := func() error {
		if err := run(hal.BulbWhite, 7, 12); err != nil {
			return err
		}
		if err := sched.Sleep(ctx, TSettle); err != nil {
			return err
		}
		if err := run(hal.BulbIR, 13, 18); err != nil {
			return err
		}
		if err := sched.Sleep(ctx, TSettle); err != nil {
			return err
		}
		if err := run(hal.BulbUV, 1, 6); err != nil {
			return err
		}
		return nil
	}()

	if ledsOn {
		_ = r.bundle.Illuminator.Set(false)
	}
	if err != nil {
		r.bundle.Cleanup()
		return nil, err
	}
	if failed {
		r.logOnce.Do(func() {
			r.logFn("spectrometer: one or more channel reads failed this process; reporting zeroed placeholder")
		})
		return frame.NewPlaceholderSpectrum(), nil
	}
	return out, nil
}

// ReadAllSensors reads a full white-illuminated spectrum plus the latest
// environmental and gas readings into one Frame.
func (r *Reader) ReadAllSensors(ctx context.Context) (frame.Frame, error) {
	spectrum, err := r.ReadSpectrum(ctx, true)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("fusion: read spectrum: %w", err)
	}
	env, err := r.bundle.Env.Read(ctx)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("fusion: read env: %w", err)
	}
	gas, err := r.bundle.Gas.Read(ctx)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("fusion: read gas: %w", err)
	}
	return frame.Frame{
		Timestamp:     time.Now(),
		Env:           env,
		Gas:           gas,
		SpectrumWhite: spectrum,
	}, nil
}
