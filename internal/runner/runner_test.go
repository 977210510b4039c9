package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/calibration"
	"github.com/poultriscan/poultriscan/internal/domainerr"
	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/hal/sim"
)

func testTable(t *testing.T) *calibration.Table {
	t.Helper()
	csv := "spoilage_label,mq137_v_rs,mq3_v_rs,as_raw_ch1,as_raw_ch2,as_raw_ch3,as_raw_ch4,as_raw_ch5,as_raw_ch6,as_raw_ch7,as_raw_ch8,as_raw_ch9,as_raw_ch10,as_raw_ch11,as_raw_ch12,as_raw_ch13,as_raw_ch14,as_raw_ch15,as_raw_ch16,as_raw_ch17,as_raw_ch18\n"
	freshRow := "Fresh,1.5,0.8,200,200,200,200,200,200,200,200,200,200,200,200,200,200,200,200,200,200\n"
	semiRow := "Semi-Fresh,1.5,0.8,400,400,400,400,400,400,400,400,400,400,400,400,400,400,400,400,400,400\n"
	path := filepath.Join(t.TempDir(), "cal.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv+freshRow+semiRow), 0o644))
	table, err := calibration.Load(path)
	require.NoError(t, err)
	return table
}

func drain(sink *events.ChanSink) {
	go func() {
		for range sink.Events() {
		}
	}()
}

// countKinds drains sink until it closes and returns how many events of
// each kind were observed.
func countKinds(sink *events.ChanSink) map[events.Kind]int {
	counts := make(map[events.Kind]int)
	for e := range sink.Events() {
		counts[e.Kind]++
	}
	return counts
}

func TestRunScanRefusesWhenTokenAlreadyHeld(t *testing.T) {
	r := New(sim.NewBundle(1), testTable(t), nil)

	_, err := r.Machine().TryAcquire()
	require.NoError(t, err)

	sink := events.NewChanSink(8)
	drain(sink)
	_, err = r.RunScan(context.Background(), sink, frame.Meta{})
	require.ErrorIs(t, err, domainerr.ErrPreempted)
}

func TestRunPurgeOnlyFailsWithoutBaseline(t *testing.T) {
	r := New(sim.NewBundle(1), testTable(t), nil)

	sink := events.NewChanSink(8)
	drain(sink)
	_, err := r.RunPurgeOnly(context.Background(), sink)
	require.Error(t, err)
}

func TestRunBaselineSequenceCancellationReleasesToken(t *testing.T) {
	r := New(sim.NewBundle(1), testTable(t), nil)

	sink := events.NewChanSink(8)
	done := make(chan map[events.Kind]int, 1)
	go func() { done <- countKinds(sink) }()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RunBaselineSequence(ctx, sink, "alice")
	require.Error(t, err)

	// the token must be released even on failure, so a subsequent
	// acquisition succeeds
	_, err = r.Machine().TryAcquire()
	require.NoError(t, err)

	sink.Close()
	counts := <-done
	require.Equal(t, 1, counts[events.KindFinished])
	require.GreaterOrEqual(t, counts[events.KindError], 1)
}

func TestCurrentBaselineNilBeforeAnyCapture(t *testing.T) {
	r := New(sim.NewBundle(1), testTable(t), nil)
	require.Nil(t, r.CurrentBaseline())
}
