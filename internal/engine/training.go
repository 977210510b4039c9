package engine

import (
	"context"
	"time"

	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/fusion"
	"github.com/poultriscan/poultriscan/internal/hal"
	"github.com/poultriscan/poultriscan/internal/persist"
	"github.com/poultriscan/poultriscan/internal/sched"
)

// Training mode runs TrainingBlocks blocks of TrainingShotsPerBlock shots
// each, idling TrainingShotIdle between shots within a block and
// TrainingBlockIdle between blocks.
const (
	TrainingBlocks        = 3
	TrainingShotsPerBlock = 5
	TrainingShotIdle      = 3 * time.Second
	TrainingBlockIdle     = 5 * time.Second
)

// TrainingResult is one sample's final canonical row, ready for labelling
// and persistence.
type TrainingResult struct {
	Final frame.Frame
}

// RunTraining captures TrainingBlocks blocks of TrainingShotsPerBlock shots,
// each shot sequencing white -> UV -> IR passes, writing three raw-block rows
// per shot, one per illumination pass. Block means (arithmetic, across the five shots) are computed as
// each block closes, and the three block-means are averaged again into the
// final result — the caller is responsible for prompting for a
// ground-truth label and calling persist.AppendTrainingCanonical.
func RunTraining(ctx context.Context, bundle *hal.Bundle, reader *fusion.Reader, sink events.Sink, meta frame.Meta, rawBlockAppender *persist.Appender) (TrainingResult, error) {
	defer events.Finished(sink)

	blockMeans := make([]frame.Frame, 0, TrainingBlocks)

	for block := 1; block <= TrainingBlocks; block++ {
		events.StateChange(sink, "Measuring")
		shots := make([]frame.Frame, 0, TrainingShotsPerBlock)

		for shot := 1; shot <= TrainingShotsPerBlock; shot++ {
			fr, white, uv, ir, err := captureTrainingShot(ctx, bundle, reader)
			if err != nil {
				bundle.Cleanup()
				events.Error(sink, err)
				return TrainingResult{}, err
			}
			fr.Meta = meta
			fr.Meta.Iteration = shot
			shots = append(shots, fr)

			for _, pass := range []struct {
				tag persist.IlluminationPass
				ch  []float64
			}{
				{persist.PassWhite, white},
				{persist.PassUV, uv},
				{persist.PassIR, ir},
			} {
				if err := persist.AppendRawBlock(rawBlockAppender, fr, block, shot, pass.tag, pass.ch); err != nil {
					events.Error(sink, err)
				}
			}
			sink.Emit(events.Event{Kind: events.KindRawSample, Frame: &fr})

			if shot < TrainingShotsPerBlock {
				if err := sched.Sleep(ctx, TrainingShotIdle); err != nil {
					bundle.Cleanup()
					return TrainingResult{}, err
				}
			}
		}

		blockMean := fusion.AggregateMean(shots)
		blockMean.Meta = meta
		blockMeans = append(blockMeans, blockMean)
		sink.Emit(events.Event{Kind: events.KindAveragedSample, Frame: &blockMean})

		if block < TrainingBlocks {
			if err := sched.Sleep(ctx, TrainingBlockIdle); err != nil {
				bundle.Cleanup()
				return TrainingResult{}, err
			}
		}
	}

	final := fusion.AggregateMean(blockMeans)
	final.Meta = meta
	return TrainingResult{Final: final}, nil
}

// captureTrainingShot sequences white -> UV -> IR passes for one training
// shot, returning the merged frame (env/gas plus the white spectrum, per
// the Frame convention) alongside each pass's raw channel slice for the
// per-pass raw-block row.
func captureTrainingShot(ctx context.Context, bundle *hal.Bundle, reader *fusion.Reader) (frame.Frame, []float64, []float64, []float64, error) {
	if err := bundle.Illuminator.Set(true); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	if err := bundle.Spectrometer.EnableBulb(hal.BulbWhite); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	if err := sched.Sleep(ctx, fusion.TStab); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	white, err := readSixteenEighteen(ctx, bundle)
	if err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	env, err := bundle.Env.Read(ctx)
	if err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	gas, err := bundle.Gas.Read(ctx)
	if err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	if err := bundle.Spectrometer.DisableBulb(hal.BulbWhite); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	if err := bundle.Illuminator.Set(false); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}

	if err := sched.Sleep(ctx, fusion.TSettle); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	if err := bundle.Spectrometer.EnableBulb(hal.BulbUV); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	if err := sched.Sleep(ctx, fusion.TStab); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	uv, err := readSixteenEighteen(ctx, bundle)
	if err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	if err := bundle.Spectrometer.DisableBulb(hal.BulbUV); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}

	if err := sched.Sleep(ctx, fusion.TSettle); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	if err := bundle.Spectrometer.EnableBulb(hal.BulbIR); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	if err := sched.Sleep(ctx, fusion.TStab); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	ir, err := readSixteenEighteen(ctx, bundle)
	if err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}
	if err := bundle.Spectrometer.DisableBulb(hal.BulbIR); err != nil {
		return frame.Frame{}, nil, nil, nil, err
	}

	fr := frame.Frame{
		Timestamp:     time.Now(),
		Env:           env,
		Gas:           gas,
		SpectrumWhite: white,
		SpectrumUV:    uv,
		SpectrumIR:    ir,
	}
	return fr, white, uv, ir, nil
}

// readSixteenEighteen triggers one integration and reads all 18 calibrated
// channels, the full-spectrum read each training pass uses (unlike the
// dashboard/continuous Reader, which only reads the 6 channels proper to
// each bulb's band).
func readSixteenEighteen(ctx context.Context, bundle *hal.Bundle) ([]float64, error) {
	if err := bundle.Spectrometer.TakeMeasurement(ctx); err != nil {
		return nil, err
	}
	out := make([]float64, frame.SpectralChannels)
	for ch := 1; ch <= frame.SpectralChannels; ch++ {
		v, err := bundle.Spectrometer.Channel(ch)
		if err != nil {
			return nil, err
		}
		out[ch-1] = v
	}
	return out, nil
}
