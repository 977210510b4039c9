// Package runner is the single top-level coordinator: it owns the HAL
// bundle and the acquisition state machine (the event sink is passed in on
// each call), and drives
// each engine through its TryAcquire/Release token in turn so that scan,
// continuous, training, baseline, and purge never run concurrently.
package runner

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/poultriscan/poultriscan/internal/calibration"
	"github.com/poultriscan/poultriscan/internal/classifier"
	"github.com/poultriscan/poultriscan/internal/engine"
	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/fusion"
	"github.com/poultriscan/poultriscan/internal/hal"
	"github.com/poultriscan/poultriscan/internal/persist"
	"github.com/poultriscan/poultriscan/internal/state"
)

// Runner wires one hal.Bundle to the acquisition state machine and the
// current baseline, and is the sole caller of every engine.
type Runner struct {
	bundle     *hal.Bundle
	machine    *state.Machine
	reader     *fusion.Reader
	classifier *classifier.Classifier

	baseline atomic.Pointer[frame.Baseline]
}

// New builds a Runner. table must already be loaded (calibration.Load
// failure is fatal at the caller's startup, never inside Runner).
func New(bundle *hal.Bundle, table *calibration.Table, logFn func(string, ...any)) *Runner {
	return &Runner{
		bundle:     bundle,
		machine:    state.New(),
		reader:     fusion.New(bundle, logFn),
		classifier: classifier.New(table),
	}
}

// WithSignals returns a context cancelled on SIGINT/SIGTERM, and the stop
// function the caller must defer-call to release the signal hook. Every
// long-running engine invocation should be bounded by this context so the
// first Ctrl-C cancels the engine, which then runs its cleanup path.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	return ctx, stop
}

// CurrentBaseline returns the most recently captured baseline, or nil if
// none has been captured this process.
func (r *Runner) CurrentBaseline() *frame.Baseline {
	return r.baseline.Load()
}

// RunBaselineSequence acquires the token, runs pre-purge and the 30s gas
// baseline capture, stores the result as the current baseline (an atomic
// pointer swap — an in-flight purge keeps its already-captured reference),
// releases the token, and returns the baseline.
func (r *Runner) RunBaselineSequence(ctx context.Context, sink events.Sink, operator string) (frame.Baseline, error) {
	tok, err := r.machine.TryAcquire()
	if err != nil {
		events.Error(sink, err)
		events.Finished(sink)
		return frame.Baseline{}, err
	}
	defer tok.Release()

	tok.Set(state.PrePurge)
	if err := engine.RunPrePurge(ctx, r.bundle, sink); err != nil {
		events.Error(sink, err)
		return frame.Baseline{}, err
	}

	tok.Set(state.InitializingGas)
	b, err := engine.RunBaselineCapture(ctx, r.bundle, sink, operator)
	if err != nil {
		events.Error(sink, err)
		return frame.Baseline{}, err
	}

	r.baseline.Store(&b)
	tok.Set(state.ReadyToMeasure)
	events.Finished(sink)
	return b, nil
}

// RunScan acquires the token, runs one dashboard scan, runs the post-scan
// purge against the current baseline, and releases the token.
func (r *Runner) RunScan(ctx context.Context, sink events.Sink, meta frame.Meta) (engine.ScanResult, error) {
	tok, err := r.machine.TryAcquire()
	if err != nil {
		events.Error(sink, err)
		return engine.ScanResult{}, err
	}
	defer tok.Release()

	tok.Set(state.Measuring)
	result, err := engine.RunScan(ctx, r.bundle, r.reader, r.classifier, sink, meta)
	if err != nil {
		return engine.ScanResult{}, err
	}

	tok.Set(state.Purging)
	baseline := r.baseline.Load()
	if baseline != nil {
		if _, err := engine.RunPurge(ctx, r.bundle, sink, baseline.GasBaseline); err != nil {
			return result, err
		}
	}
	tok.Set(state.ReadyToMeasure)
	return result, nil
}

// RunPurgeOnly acquires the token and runs the dynamic purge controller
// alone, against the current baseline's gas targets.
func (r *Runner) RunPurgeOnly(ctx context.Context, sink events.Sink) (engine.PurgeReason, error) {
	baseline := r.baseline.Load()
	if baseline == nil {
		err := fmt.Errorf("runner: purge requested with no baseline captured")
		events.Error(sink, err)
		events.Finished(sink)
		return "", err
	}

	tok, err := r.machine.TryAcquire()
	if err != nil {
		events.Error(sink, err)
		return "", err
	}
	defer tok.Release()

	tok.Set(state.Purging)
	reason, err := engine.RunPurge(ctx, r.bundle, sink, baseline.GasBaseline)
	tok.Set(state.ReadyToMeasure)
	return reason, err
}

// RunContinuous acquires the token for the lifetime of the continuous
// monitor loop and releases it when the loop exits (stopped or errored).
func (r *Runner) RunContinuous(ctx context.Context, sink events.Sink, running *engine.ContinuousRunning, rawPath, avgPath string) error {
	tok, err := r.machine.TryAcquire()
	if err != nil {
		events.Error(sink, err)
		return err
	}
	defer tok.Release()

	tok.Set(state.Measuring)
	rawAppender := persist.NewContinuousRawAppender(rawPath)
	avgAppender := persist.NewContinuousAveragedAppender(avgPath)
	return engine.RunContinuous(ctx, r.bundle, r.reader, sink, running, rawAppender, avgAppender)
}

// RunTraining acquires the token for one multi-block training capture and
// releases it once all blocks complete (or the run errors). Labelling and
// the canonical CSV write are the caller's responsibility, since the
// ground-truth label comes from the operator after the capture finishes.
func (r *Runner) RunTraining(ctx context.Context, sink events.Sink, meta frame.Meta, rawBlockPath string) (engine.TrainingResult, error) {
	tok, err := r.machine.TryAcquire()
	if err != nil {
		events.Error(sink, err)
		return engine.TrainingResult{}, err
	}
	defer tok.Release()

	tok.Set(state.Measuring)
	rawBlockAppender := persist.NewRawBlockAppender(rawBlockPath)
	result, err := engine.RunTraining(ctx, r.bundle, r.reader, sink, meta, rawBlockAppender)
	if err != nil {
		return engine.TrainingResult{}, err
	}

	tok.Set(state.Purging)
	baseline := r.baseline.Load()
	if baseline != nil {
		if _, err := engine.RunPurge(ctx, r.bundle, sink, baseline.GasBaseline); err != nil {
			return result, err
		}
	}
	tok.Set(state.ReadyToMeasure)
	return result, nil
}

// Machine exposes the acquisition state machine for status reporting
// (current state, whether a token is held) without exposing token
// acquisition itself outside this package.
func (r *Runner) Machine() *state.Machine { return r.machine }
