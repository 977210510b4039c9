package persist

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/frame"
)

func TestAppendWritesHeaderOnlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	a := NewAppender(path, []string{"a", "b"})

	require.NoError(t, a.Append([]string{"1", "2"}))
	require.NoError(t, a.Append([]string{"3", "4"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Equal(t, []string{"a,b", "1,2", "3,4"}, lines)
}

func TestFloatFormatterRendersNaNLiteral(t *testing.T) {
	require.Equal(t, "NaN", f(math.NaN()))
	require.Equal(t, "1.5", f(1.5))
}

func TestAppendReportRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	a := NewReportAppender(path)

	fr := frame.Frame{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Meta:      frame.Meta{SampleID: "PS-CHK-0001", MeatType: "chicken"},
		Env:       frame.EnvReading{TempC: 22.5, HumidityPct: 60},
		Gas:       frame.GasReading{MQ137: 0.8, MQ135: 0.3, MQ3: 0.2, MQ4: 0.1},
	}
	v := frame.Verdict{Category: frame.CategoryFresh, WHCIdx: 84, FACIdx: 50, MyoIdx: 40}

	require.NoError(t, AppendReport(a, fr, v))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "PS-CHK-0001")
	require.Contains(t, string(content), "FRESH")
}

func TestAppendRawDatabasePadsMissingChannelsWithNaN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	a := NewRawDatabaseAppender(path)

	fr := frame.Frame{
		Meta:          frame.Meta{SampleID: "PS-CHK-0001", Iteration: 1},
		SpectrumWhite: []float64{1, 2, 3}, // short of SpectralChannels
	}
	require.NoError(t, AppendRawDatabase(a, fr))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "NaN")
}

func TestAppendBaselineHistoryRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.csv")
	a := NewBaselineHistoryAppender(path)

	var white, dark [frame.SpectralChannels]float64
	for i := range white {
		white[i] = float64(i)
		dark[i] = float64(i) * 0.1
	}
	b := frame.Baseline{
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Operator:    "alice",
		AmbientTemp: 21,
		AmbientHum:  55,
		GasBaseline: frame.GasReading{MQ137: 0.4},
		WhiteRef:    white,
		DarkRef:     dark,
	}
	require.NoError(t, AppendBaselineHistory(a, b))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "alice")
}
