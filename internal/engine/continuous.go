package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/fusion"
	"github.com/poultriscan/poultriscan/internal/hal"
	"github.com/poultriscan/poultriscan/internal/persist"
	"github.com/poultriscan/poultriscan/internal/sched"
)

// Continuous monitor parameters: a tick every ContinuousInterval, averaged
// over a tumbling window of ContinuousWindow samples (five minutes).
const (
	ContinuousInterval = 5 * time.Second
	ContinuousWindow   = 60
)

// ContinuousRunning is a cooperative stop flag a caller flips from another
// goroutine to end RunContinuous at the next tick boundary or within one
// 100ms sleep slice, whichever is sooner.
type ContinuousRunning struct {
	flag atomic.Bool
}

// NewContinuousRunning returns a running flag already set to true.
func NewContinuousRunning() *ContinuousRunning {
	r := &ContinuousRunning{}
	r.flag.Store(true)
	return r
}

func (r *ContinuousRunning) Stop()        { r.flag.Store(false) }
func (r *ContinuousRunning) running() bool { return r.flag.Load() }

// RunContinuous loops taking a white-only spectral+env+gas sample every
// ContinuousInterval, appending each to the raw log, and averaging every
// ContinuousWindow samples (tumbling, no overlap) into the averaged log.
// Each tick's read/append work is timed and subtracted from the wait before
// the next tick, so the sample period tracks ContinuousInterval rather than
// ContinuousInterval plus whatever that tick's processing took. It exits
// cleanly the instant running reports false, and always emits KindFinished
// exactly once.
func RunContinuous(ctx context.Context, bundle *hal.Bundle, reader *fusion.Reader, sink events.Sink, running *ContinuousRunning, rawAppender, avgAppender *persist.Appender) error {
	defer events.Finished(sink)

	buf := make([]frame.Frame, 0, ContinuousWindow)

	for running.running() {
		tickStart := time.Now()
		if err := bundle.Illuminator.Set(true); err != nil {
			bundle.Cleanup()
			events.Error(sink, err)
			return err
		}
		if err := sched.Sleep(ctx, 500*time.Millisecond); err != nil {
			bundle.Cleanup()
			return err
		}

		spectrum, err := reader.ReadSpectrum(ctx, true)
		if err != nil {
			bundle.Cleanup()
			events.Error(sink, err)
			return err
		}
		env, err := bundle.Env.Read(ctx)
		if err != nil {
			bundle.Cleanup()
			events.Error(sink, err)
			return err
		}
		gas, err := bundle.Gas.Read(ctx)
		if err != nil {
			bundle.Cleanup()
			events.Error(sink, err)
			return err
		}
		if err := bundle.Illuminator.Set(false); err != nil {
			bundle.Cleanup()
			events.Error(sink, err)
			return err
		}

		fr := frame.Frame{Timestamp: time.Now(), Env: env, Gas: gas, SpectrumWhite: spectrum}

		if err := persist.AppendContinuousRaw(rawAppender, fr); err != nil {
			events.Error(sink, err)
		}
		sink.Emit(events.Event{Kind: events.KindRawSample, Frame: &fr})

		buf = append(buf, fr)
		if len(buf) == ContinuousWindow {
			avg := fusion.AggregateMean(buf)
			avg.Timestamp = fr.Timestamp
			if err := persist.AppendContinuousAveraged(avgAppender, avg); err != nil {
				events.Error(sink, err)
			}
			sink.Emit(events.Event{Kind: events.KindAveragedSample, Frame: &avg})
			buf = buf[:0]
		}

		remainder := ContinuousInterval - time.Since(tickStart)
		if err := waitTickRemainder(ctx, running, remainder); err != nil {
			bundle.Cleanup()
			return err
		}
	}
	return nil
}

// waitTickRemainder sleeps for d in 100ms slices, returning early (with a
// nil error) the instant running reports false, so a stop request lands
// within 100ms.
func waitTickRemainder(ctx context.Context, running *ContinuousRunning, d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		if !running.running() {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		step := remaining
		if step > 100*time.Millisecond {
			step = 100 * time.Millisecond
		}
		if err := sched.Sleep(ctx, step); err != nil {
			return fmt.Errorf("continuous: %w", err)
		}
	}
}
