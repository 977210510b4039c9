package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/domainerr"
	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/fusion"
	"github.com/poultriscan/poultriscan/internal/hal/sim"
)

// countKinds drains sink until it closes and returns how many events of
// each kind were observed.
func countKinds(sink *events.ChanSink) map[events.Kind]int {
	counts := make(map[events.Kind]int)
	for e := range sink.Events() {
		counts[e.Kind]++
	}
	return counts
}

func TestRunPrePurgeCancellationCleansUpAndReturnsCancelled(t *testing.T) {
	bundle := sim.NewBundle(1)
	sink := events.NewChanSink(32)
	done := make(chan map[events.Kind]int, 1)
	go func() { done <- countKinds(sink) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunPrePurge(ctx, bundle, sink)
	require.Error(t, err)
	require.ErrorIs(t, err, domainerr.ErrCancelled)

	fan := bundle.Fan.(*sim.Fan)
	require.Equal(t, 0, fan.Duty)

	sink.Close()
	counts := <-done
	require.Equal(t, 1, counts[events.KindFinished])
	require.Equal(t, 1, counts[events.KindError])
}

func TestRunBaselineCaptureCancellationCleansUp(t *testing.T) {
	bundle := sim.NewBundle(1)
	sink := events.NewChanSink(32)
	done := make(chan map[events.Kind]int, 1)
	go func() { done <- countKinds(sink) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBaselineCapture(ctx, bundle, sink, "alice")
	require.Error(t, err)
	require.ErrorIs(t, err, domainerr.ErrCancelled)

	illum := bundle.Illuminator.(*sim.Illuminator)
	require.False(t, illum.On)

	sink.Close()
	counts := <-done
	require.Equal(t, 1, counts[events.KindFinished])
	require.Equal(t, 1, counts[events.KindError])
}

func TestRunDarkRefCapturesFullSpectrumWithLedsOff(t *testing.T) {
	bundle := sim.NewBundle(1)
	reader := fusion.New(bundle, nil)
	sink := events.NewChanSink(32)
	done := make(chan map[events.Kind]int, 1)
	go func() { done <- countKinds(sink) }()

	ref, err := RunDarkRef(context.Background(), bundle, reader, sink)
	require.NoError(t, err)
	require.Len(t, ref, frame.SpectralChannels)

	sink.Close()
	counts := <-done
	require.Equal(t, 1, counts[events.KindFinished])
}

func TestRunWhiteRefCapturesFullSpectrum(t *testing.T) {
	bundle := sim.NewBundle(1)
	reader := fusion.New(bundle, nil)
	sink := events.NewChanSink(32)
	go func() {
		for range sink.Events() {
		}
	}()

	ref, err := RunWhiteRef(context.Background(), bundle, reader, sink)
	require.NoError(t, err)
	require.Len(t, ref, frame.SpectralChannels)

	illum := bundle.Illuminator.(*sim.Illuminator)
	require.False(t, illum.On) // ReadSpectrum always turns the strip off again
}

func TestCaptureRefCleansUpOnCancellation(t *testing.T) {
	bundle := sim.NewBundle(1)
	reader := fusion.New(bundle, nil)
	sink := events.NewChanSink(32)
	go func() {
		for range sink.Events() {
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := captureRef(ctx, bundle, reader, sink, true)
	require.Error(t, err)

	illum := bundle.Illuminator.(*sim.Illuminator)
	require.False(t, illum.On)
	fan := bundle.Fan.(*sim.Fan)
	require.Equal(t, 0, fan.Duty)
}
