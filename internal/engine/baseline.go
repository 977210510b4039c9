package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/poultriscan/poultriscan/internal/domainerr"
	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/fusion"
	"github.com/poultriscan/poultriscan/internal/hal"
)

// PrePurgeDuration and StabilizeDuration drive the fan before any baseline
// capture: full speed to flush the chamber, then off to let gas readings
// settle.
const (
	PrePurgeDuration  = 10 * time.Second
	StabilizeDuration = 5 * time.Second
	BaselineDuration  = 30 * time.Second
)

// RunPrePurge drives the fan at 100% for PrePurgeDuration, then off for
// StabilizeDuration, reporting per-second progress across the combined
// window. Checked for cancellation between one-second slices.
func RunPrePurge(ctx context.Context, bundle *hal.Bundle, sink events.Sink) error {
	defer events.Finished(sink)

	events.StateChange(sink, "PrePurge")
	if err := bundle.Fan.SetDuty(100); err != nil {
		bundle.Cleanup()
		err = fmt.Errorf("pre-purge: fan on: %w", err)
		events.Error(sink, err)
		return err
	}
	if err := tickSeconds(ctx, sink, PrePurgeDuration, 0); err != nil {
		bundle.Cleanup()
		events.Error(sink, err)
		return err
	}

	events.StateChange(sink, "Stabilize")
	if err := bundle.Fan.SetDuty(0); err != nil {
		bundle.Cleanup()
		err = fmt.Errorf("pre-purge: fan off: %w", err)
		events.Error(sink, err)
		return err
	}
	secs := int(PrePurgeDuration / time.Second)
	if err := tickSeconds(ctx, sink, StabilizeDuration, secs); err != nil {
		bundle.Cleanup()
		events.Error(sink, err)
		return err
	}
	return nil
}

// tickSeconds sleeps for d in one-second slices, emitting progress relative
// to a combined PrePurgeDuration+StabilizeDuration window starting at
// offsetSecs, and returning an error wrapping domainerr.ErrCancelled the
// instant cancellation is observed.
func tickSeconds(ctx context.Context, sink events.Sink, d time.Duration, offsetSecs int) error {
	total := int((PrePurgeDuration + StabilizeDuration) / time.Second)
	n := int(d / time.Second)
	for s := 1; s <= n; s++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("pre-purge: %w: %v", domainerr.ErrCancelled, ctx.Err())
		case <-time.After(time.Second):
		}
		events.Progress(sink, (offsetSecs+s)*100/total)
	}
	return nil
}

// RunBaselineCapture samples gas and env at 1 Hz for BaselineDuration,
// reporting per-second progress, then returns the mean of each field as a
// new Baseline. Cancellation is checked between samples; the in-flight
// 1-second slice always finishes first.
func RunBaselineCapture(ctx context.Context, bundle *hal.Bundle, sink events.Sink, operator string) (frame.Baseline, error) {
	defer events.Finished(sink)

	events.StateChange(sink, "InitializingGas")

	n := int(BaselineDuration / time.Second)
	var sumTemp, sumHum, sumMQ137, sumMQ135, sumMQ4, sumMQ3 float64

	for s := 1; s <= n; s++ {
		if ctx.Err() != nil {
			bundle.Cleanup()
			err := fmt.Errorf("baseline: %w: %v", domainerr.ErrCancelled, ctx.Err())
			events.Error(sink, err)
			return frame.Baseline{}, err
		}
		time.Sleep(time.Second)
		readCtx := context.WithoutCancel(ctx)

		env, err := bundle.Env.Read(readCtx)
		if err != nil {
			bundle.Cleanup()
			err = fmt.Errorf("baseline: read env: %w", err)
			events.Error(sink, err)
			return frame.Baseline{}, err
		}
		gas, err := bundle.Gas.Read(readCtx)
		if err != nil {
			bundle.Cleanup()
			err = fmt.Errorf("baseline: read gas: %w", err)
			events.Error(sink, err)
			return frame.Baseline{}, err
		}
		sumTemp += env.TempC
		sumHum += env.HumidityPct
		sumMQ137 += gas.MQ137
		sumMQ135 += gas.MQ135
		sumMQ4 += gas.MQ4
		sumMQ3 += gas.MQ3

		events.Progress(sink, s*100/n)
	}

	nf := float64(n)
	return frame.Baseline{
		Timestamp:   time.Now(),
		Operator:    operator,
		AmbientTemp: sumTemp / nf,
		AmbientHum:  sumHum / nf,
		GasBaseline: frame.GasReading{
			MQ137: sumMQ137 / nf,
			MQ135: sumMQ135 / nf,
			MQ4:   sumMQ4 / nf,
			MQ3:   sumMQ3 / nf,
		},
	}, nil
}

// RunDarkRef forces every bulb off, waits TStab, and captures one
// read_spectrum(leds_on=false) pass as the instrument's dark reference.
func RunDarkRef(ctx context.Context, bundle *hal.Bundle, reader *fusion.Reader, sink events.Sink) ([frame.SpectralChannels]float64, error) {
	defer events.Finished(sink)
	events.StateChange(sink, "NeedsDarkRef")
	for _, b := range []hal.Bulb{hal.BulbWhite, hal.BulbUV, hal.BulbIR} {
		if err := bundle.Spectrometer.DisableBulb(b); err != nil {
			bundle.Cleanup()
			events.Error(sink, err)
			return [frame.SpectralChannels]float64{}, err
		}
	}
	if err := bundle.Illuminator.Set(false); err != nil {
		bundle.Cleanup()
		events.Error(sink, err)
		return [frame.SpectralChannels]float64{}, err
	}
	return captureRef(ctx, bundle, reader, sink, false)
}

// RunWhiteRef turns the strip LED and white bulb on, waits TStab, and
// captures one read_spectrum(leds_on=true) pass; its white-bulb band is the
// white reference.
func RunWhiteRef(ctx context.Context, bundle *hal.Bundle, reader *fusion.Reader, sink events.Sink) ([frame.SpectralChannels]float64, error) {
	defer events.Finished(sink)
	events.StateChange(sink, "NeedsWhiteRef")
	return captureRef(ctx, bundle, reader, sink, true)
}

// RunUvRef and RunIrRef exist for the training-extended reference sequence;
// they reuse the same capture mechanics, distinguished only by the emitted
// state name, since read_spectrum already integrates every bulb in one pass.
func RunUvRef(ctx context.Context, bundle *hal.Bundle, reader *fusion.Reader, sink events.Sink) ([frame.SpectralChannels]float64, error) {
	defer events.Finished(sink)
	events.StateChange(sink, "NeedsUvRef")
	return captureRef(ctx, bundle, reader, sink, true)
}

func RunIrRef(ctx context.Context, bundle *hal.Bundle, reader *fusion.Reader, sink events.Sink) ([frame.SpectralChannels]float64, error) {
	defer events.Finished(sink)
	events.StateChange(sink, "NeedsIrRef")
	return captureRef(ctx, bundle, reader, sink, true)
}

func captureRef(ctx context.Context, bundle *hal.Bundle, reader *fusion.Reader, sink events.Sink, ledsOn bool) ([frame.SpectralChannels]float64, error) {
	spectrum, err := reader.ReadSpectrum(ctx, ledsOn)
	if err != nil {
		bundle.Cleanup()
		events.Error(sink, err)
		return [frame.SpectralChannels]float64{}, err
	}
	var out [frame.SpectralChannels]float64
	copy(out[:], spectrum)
	return out, nil
}
