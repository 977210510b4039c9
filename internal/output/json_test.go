package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/frame"
)

func TestWriteBaselineJSONToFile(t *testing.T) {
	baseline := frame.Baseline{
		Timestamp:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Operator:    "op1",
		AmbientTemp: 24.5,
		AmbientHum:  55.0,
		GasBaseline: frame.GasReading{MQ137: 1.0, MQ135: 1.1, MQ4: 1.2, MQ3: 1.3},
	}

	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "baseline.json")

	require.NoError(t, WriteBaselineJSON(baseline, outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"Operator": "op1"`)
}

func TestReadBaselineJSONRoundtrips(t *testing.T) {
	baseline := frame.Baseline{
		Timestamp:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Operator:    "op1",
		AmbientTemp: 24.5,
		AmbientHum:  55.0,
		GasBaseline: frame.GasReading{MQ137: 1.0, MQ135: 1.1, MQ4: 1.2, MQ3: 1.3},
	}

	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, WriteBaselineJSON(baseline, path))

	got, err := ReadBaselineJSON(path)
	require.NoError(t, err)
	require.Equal(t, baseline.Operator, got.Operator)
	require.Equal(t, baseline.AmbientTemp, got.AmbientTemp)
	require.True(t, baseline.Timestamp.Equal(got.Timestamp))
}

func TestReadBaselineJSONMissingFile(t *testing.T) {
	_, err := ReadBaselineJSON(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestWriteBaselineJSONStdout(t *testing.T) {
	baseline := frame.Baseline{Operator: "op2"}

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := WriteBaselineJSON(baseline, "-")

	w.Close()
	os.Stdout = oldStdout
	require.NoError(t, err)

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	require.Greater(t, n, 0)
}
