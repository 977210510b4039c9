package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/calibration"
	"github.com/poultriscan/poultriscan/internal/classifier"
	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/fusion"
	"github.com/poultriscan/poultriscan/internal/hal/sim"
)

func testClassifier(t *testing.T) *classifier.Classifier {
	t.Helper()
	csv := "spoilage_label,mq137_v_rs,mq3_v_rs,as_raw_ch1,as_raw_ch2,as_raw_ch3,as_raw_ch4,as_raw_ch5,as_raw_ch6,as_raw_ch7,as_raw_ch8,as_raw_ch9,as_raw_ch10,as_raw_ch11,as_raw_ch12,as_raw_ch13,as_raw_ch14,as_raw_ch15,as_raw_ch16,as_raw_ch17,as_raw_ch18\n"
	freshRow := "Fresh,1.5,0.8,200,200,200,200,200,200,200,200,200,200,200,200,200,200,200,200,200,200\n"
	semiRow := "Semi-Fresh,1.5,0.8,400,400,400,400,400,400,400,400,400,400,400,400,400,400,400,400,400,400\n"
	path := filepath.Join(t.TempDir(), "cal.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv+freshRow+semiRow), 0o644))
	table, err := calibration.Load(path)
	require.NoError(t, err)
	return classifier.New(table)
}

func TestRunScanCancelledBeforeFirstShotReturnsError(t *testing.T) {
	bundle := sim.NewBundle(1)
	reader := fusion.New(bundle, nil)
	cls := testClassifier(t)
	sink := events.NewChanSink(32)
	go func() {
		for range sink.Events() {
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunScan(ctx, bundle, reader, cls, sink, frame.Meta{SampleID: "PS-CHK-0001"})
	require.Error(t, err)

	illum := bundle.Illuminator.(*sim.Illuminator)
	require.False(t, illum.On)
}

func TestRunScanAlwaysEmitsFinishedExactlyOnce(t *testing.T) {
	bundle := sim.NewBundle(1)
	reader := fusion.New(bundle, nil)
	cls := testClassifier(t)
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

	_, _ = RunScan(ctx, bundle, reader, cls, sink, frame.Meta{})
	sink.Close()
	<-done
	require.Equal(t, 1, finished)
}
