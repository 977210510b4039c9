package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/frame"
)

func TestClampBounds(t *testing.T) {
	require.Equal(t, 1.0, Clamp(-5, 1, 10))
	require.Equal(t, 10.0, Clamp(50, 1, 10))
	require.Equal(t, 5.0, Clamp(5, 1, 10))
}

func shot(mq137 float64, white []float64) frame.Frame {
	return frame.Frame{
		Timestamp:     time.Unix(100, 0),
		Gas:           frame.GasReading{MQ137: mq137},
		SpectrumWhite: white,
	}
}

func TestAggregateMaxTakesElementwiseEnvelope(t *testing.T) {
	shots := []frame.Frame{
		shot(0.5, []float64{1, 9, 3}),
		shot(1.5, []float64{4, 2, 6}),
		shot(0.2, []float64{0, 5, 8}),
	}
	out := AggregateMax(shots)

	require.Equal(t, 1.5, out.Gas.MQ137)
	require.Equal(t, []float64{4, 9, 8}, out.SpectrumWhite)
	require.Equal(t, shots[0].Timestamp, out.Timestamp)
}

func TestAggregateMeanAveragesElementwise(t *testing.T) {
	shots := []frame.Frame{
		shot(1.0, []float64{2, 4}),
		shot(2.0, []float64{4, 8}),
		shot(3.0, []float64{6, 12}),
	}
	out := AggregateMean(shots)

	require.Equal(t, 2.0, out.Gas.MQ137)
	require.Equal(t, []float64{4, 8}, out.SpectrumWhite)
}

func TestAggregateMaxSingleShotIsIdentity(t *testing.T) {
	s := shot(0.7, []float64{1, 2, 3})
	out := AggregateMax([]frame.Frame{s})
	require.Equal(t, s.Gas.MQ137, out.Gas.MQ137)
	require.Equal(t, s.SpectrumWhite, out.SpectrumWhite)
}
