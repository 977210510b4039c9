package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/hal"
	"github.com/poultriscan/poultriscan/internal/sched"
)

// Purge parameters, fixed per spec.
const (
	PurgeTolerance     = 0.05
	PurgeCheckInterval = 3 * time.Second
	PurgeTimeout       = 60 * time.Second
)

// PurgeReason names why the dynamic purge controller stopped.
type PurgeReason string

const (
	PurgeClean   PurgeReason = "CLEAN"
	PurgeTimedOut PurgeReason = "TIMEOUT"
)

// RunPurge drives the fan until every gas channel returns within tolerance
// of target, or PurgeTimeout elapses. The fan is always switched off before
// returning, and a KindFinished event is always emitted exactly once.
func RunPurge(ctx context.Context, bundle *hal.Bundle, sink events.Sink, target frame.GasReading) (PurgeReason, error) {
	defer events.Finished(sink)

	if err := bundle.Fan.SetDuty(100); err != nil {
		bundle.Cleanup()
		events.Error(sink, fmt.Errorf("purge: fan on: %w", err))
		return "", err
	}

	start := time.Now()
	for {
		if time.Since(start) >= PurgeTimeout {
			_ = bundle.Fan.SetDuty(0)
			return PurgeTimedOut, nil
		}

		current, err := bundle.Gas.Read(ctx)
		if err != nil {
			bundle.Cleanup()
			events.Error(sink, fmt.Errorf("purge: read gas: %w", err))
			return "", err
		}

		clean := true
		report := func(name string, targetV, currentV float64) bool {
			ok := withinTolerance(targetV, currentV)
			events.Log(sink, "purge: %s target=%.3f current=%.3f cleared=%v", name, targetV, currentV, ok)
			return ok
		}
		clean = report("mq137", target.MQ137, current.MQ137) && clean
		clean = report("mq135", target.MQ135, current.MQ135) && clean
		clean = report("mq4", target.MQ4, current.MQ4) && clean
		clean = report("mq3", target.MQ3, current.MQ3) && clean

		if clean {
			_ = bundle.Fan.SetDuty(0)
			return PurgeClean, nil
		}

		if err := sched.Sleep(ctx, PurgeCheckInterval); err != nil {
			bundle.Cleanup()
			return "", err
		}
	}
}

// withinTolerance reports whether current sits within PurgeTolerance of
// target. A zero target requires current to be exactly zero, since a
// multiplicative tolerance band around zero is empty.
func withinTolerance(target, current float64) bool {
	if target == 0 {
		return current == 0
	}
	low := target * (1 - PurgeTolerance)
	high := target * (1 + PurgeTolerance)
	return current >= low && current <= high
}
