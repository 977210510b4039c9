package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/fusion"
	"github.com/poultriscan/poultriscan/internal/hal/sim"
	"github.com/poultriscan/poultriscan/internal/persist"
)

func TestRunContinuousExitsImmediatelyWhenAlreadyStopped(t *testing.T) {
	bundle := sim.NewBundle(1)
	reader := fusion.New(bundle, nil)
	sink := events.NewChanSink(8)
	go func() {
		for range sink.Events() {
		}
	}()

	running := NewContinuousRunning()
	running.Stop()

	dir := t.TempDir()
	raw := persist.NewContinuousRawAppender(filepath.Join(dir, "raw.csv"))
	avg := persist.NewContinuousAveragedAppender(filepath.Join(dir, "avg.csv"))

	err := RunContinuous(context.Background(), bundle, reader, sink, running, raw, avg)
	require.NoError(t, err)

	// No ticks ran, so the raw log was never created.
	_, statErr := os.Stat(filepath.Join(dir, "raw.csv"))
	require.True(t, os.IsNotExist(statErr))
}

func TestRunContinuousPropagatesCancellationAndCleansUp(t *testing.T) {
	bundle := sim.NewBundle(1)
	reader := fusion.New(bundle, nil)
	sink := events.NewChanSink(8)
	go func() {
		for range sink.Events() {
		}
	}()

	running := NewContinuousRunning()
	dir := t.TempDir()
	raw := persist.NewContinuousRawAppender(filepath.Join(dir, "raw.csv"))
	avg := persist.NewContinuousAveragedAppender(filepath.Join(dir, "avg.csv"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunContinuous(ctx, bundle, reader, sink, running, raw, avg)
	require.Error(t, err)

	illum := bundle.Illuminator.(*sim.Illuminator)
	require.False(t, illum.On)
	fan := bundle.Fan.(*sim.Fan)
	require.Equal(t, 0, fan.Duty)
}

func TestWaitTickRemainderReturnsEarlyWhenStopped(t *testing.T) {
	running := NewContinuousRunning()
	running.Stop()

	start := time.Now()
	err := waitTickRemainder(context.Background(), running, 5*time.Second)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestWaitTickRemainderHonorsCancellation(t *testing.T) {
	running := NewContinuousRunning()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := waitTickRemainder(ctx, running, 5*time.Second)
	require.Error(t, err)
}

func TestWaitTickRemainderReturnsAfterFullDuration(t *testing.T) {
	running := NewContinuousRunning()
	start := time.Now()
	err := waitTickRemainder(context.Background(), running, 150*time.Millisecond)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestWaitTickRemainderReturnsImmediatelyWhenAlreadyElapsed(t *testing.T) {
	running := NewContinuousRunning()
	start := time.Now()
	err := waitTickRemainder(context.Background(), running, -50*time.Millisecond)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 50*time.Millisecond)
}
