package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/frame"
)

func TestAppendRawBlockTagsIlluminationPass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw_block.csv")
	a := NewRawBlockAppender(path)

	fr := frame.Frame{Meta: frame.Meta{SampleID: "chicken_room_1"}}
	require.NoError(t, AppendRawBlock(a, fr, 1, 3, PassUV, []float64{1, 2, 3}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "UV")
}

func TestAppendTrainingCanonicalIncludesAllThreeSpectra(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canonical.csv")
	a := NewTrainingCanonicalAppender(path)

	fr := frame.Frame{
		Meta:          frame.Meta{SampleID: "chicken_room_1", MeatType: "chicken", Storage: "room", Replica: 1, Hour: 0},
		SpectrumWhite: make([]float64, frame.SpectralChannels),
		SpectrumUV:    make([]float64, frame.SpectralChannels),
		SpectrumIR:    make([]float64, frame.SpectralChannels),
	}
	require.NoError(t, AppendTrainingCanonical(a, fr, "Fresh"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	header := strings.Split(string(content), "\n")[0]
	require.Contains(t, header, "uv_raw_ch1")
	require.Contains(t, header, "ir_raw_ch1")
	require.Contains(t, string(content), "Fresh")
}

func TestAppendContinuousAveragedUsesWindowEndTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avg.csv")
	a := NewContinuousAveragedAppender(path)

	fr := frame.Frame{SpectrumWhite: make([]float64, frame.SpectralChannels)}
	require.NoError(t, AppendContinuousAveraged(a, fr))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(content), "window_end_iso"))
}
