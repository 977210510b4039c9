package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/fusion"
	"github.com/poultriscan/poultriscan/internal/hal/sim"
	"github.com/poultriscan/poultriscan/internal/persist"
)

func TestRunTrainingCancelledDuringFirstShotCleansUp(t *testing.T) {
	bundle := sim.NewBundle(1)
	reader := fusion.New(bundle, nil)
	sink := events.NewChanSink(32)
	go func() {
		for range sink.Events() {
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	appender := persist.NewRawBlockAppender(filepath.Join(t.TempDir(), "raw_block.csv"))

	_, err := RunTraining(ctx, bundle, reader, sink, frame.Meta{SampleID: "chicken_room_1"}, appender)
	require.Error(t, err)

	illum := bundle.Illuminator.(*sim.Illuminator)
	require.False(t, illum.On)
}

func TestRunTrainingAlwaysEmitsFinishedExactlyOnce(t *testing.T) {
	bundle := sim.NewBundle(1)
	reader := fusion.New(bundle, nil)
	sink := events.NewChanSink(32)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var finished int
	done := make(chan struct{})
	go func() {
		for e := range sink.Events() {
			if e.Kind == events.KindFinished {
				finished++
			}
		}
		close(done)
	}()

	appender := persist.NewRawBlockAppender(filepath.Join(t.TempDir(), "raw_block.csv"))
	_, _ = RunTraining(ctx, bundle, reader, sink, frame.Meta{}, appender)
	sink.Close()
	<-done
	require.Equal(t, 1, finished)
}

func TestCaptureTrainingShotCancellationPropagates(t *testing.T) {
	bundle := sim.NewBundle(1)
	reader := fusion.New(bundle, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, _, err := captureTrainingShot(ctx, bundle, reader)
	require.Error(t, err)
}
