package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/poultriscan/poultriscan/internal/classifier"
	"github.com/poultriscan/poultriscan/internal/domainerr"
	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/fusion"
	"github.com/poultriscan/poultriscan/internal/hal"
)

// ScanShots is the number of illuminated shots a single dashboard scan
// aggregates (elementwise max) over, and ScanShotInterval the idle time between consecutive
// shots.
const (
	ScanShots        = 5
	ScanShotInterval = 500 * time.Millisecond
)

// ScanResult is a single dashboard scan's output: the elementwise-max
// aggregate, every raw shot that fed it, and the verdict derived from the
// aggregate.
type ScanResult struct {
	Aggregate frame.Frame
	AllShots  []frame.Frame
	Verdict   frame.Verdict
}

// RunScan executes one dashboard scan: ScanShots illuminated shots,
// elementwise-max aggregation, and classification. Cancellation is checked
// between shots; on cancel the strip LED is turned off and no result is
// returned. identity is stamped onto the aggregate and every shot before
// classification.
func RunScan(ctx context.Context, bundle *hal.Bundle, reader *fusion.Reader, cls *classifier.Classifier, sink events.Sink, meta frame.Meta) (ScanResult, error) {
	defer events.Finished(sink)

	shots := make([]frame.Frame, 0, ScanShots)
	for idx := 1; idx <= ScanShots; idx++ {
		select {
		case <-ctx.Done():
			_ = bundle.Illuminator.Set(false)
			err := fmt.Errorf("scan: %w: %v", domainerr.ErrCancelled, ctx.Err())
			events.Error(sink, err)
			return ScanResult{}, err
		default:
		}

		events.Progress(sink, (idx-1)*100/ScanShots)

		fr, err := reader.ReadAllSensors(ctx)
		if err != nil {
			bundle.Cleanup()
			events.Error(sink, err)
			return ScanResult{}, err
		}
		fr.Meta = meta
		fr.Meta.Iteration = idx
		shots = append(shots, fr)
		sink.Emit(events.Event{Kind: events.KindRawSample, Frame: &fr})

		if idx < ScanShots {
			if err := sleepOrCancel(ctx, ScanShotInterval); err != nil {
				_ = bundle.Illuminator.Set(false)
				events.Error(sink, err)
				return ScanResult{}, err
			}
		}
	}
	events.Progress(sink, 100)

	aggregate := fusion.AggregateMax(shots)
	aggregate.Meta = meta
	verdict := cls.Classify(aggregate)

	sink.Emit(events.Event{Kind: events.KindScanResult, Verdict: &verdict, AllShots: shots})

	return ScanResult{Aggregate: aggregate, AllShots: shots, Verdict: verdict}, nil
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scan: %w: %v", domainerr.ErrCancelled, ctx.Err())
	}
}
