package calibration

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/domainerr"
)

func header() string {
	return "spoilage_label,mq137_v_rs,mq3_v_rs,as_raw_ch1,as_raw_ch2,as_raw_ch3,as_raw_ch4,as_raw_ch5,as_raw_ch6,as_raw_ch7,as_raw_ch8,as_raw_ch9,as_raw_ch10,as_raw_ch11,as_raw_ch12,as_raw_ch13,as_raw_ch14,as_raw_ch15,as_raw_ch16,as_raw_ch17,as_raw_ch18\n"
}

func row(label string, mq137, mq3, chVal float64) string {
	cells := []string{label, f64(mq137), f64(mq3)}
	for i := 0; i < 18; i++ {
		cells = append(cells, f64(chVal))
	}
	out := cells[0]
	for _, c := range cells[1:] {
		out += "," + c
	}
	return out + "\n"
}

func f64(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func TestLoadComputesDerivedThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.csv")
	content := header() + row("Fresh", 1.0, 0.5, 200) + row("Fresh", 1.5, 0.8, 100) + row("Semi-Fresh", 1.0, 0.5, 400)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 100.0, table.FreshCh2Min())
	require.Equal(t, 1.5, table.FreshMQ137Max())
	require.Equal(t, 0.8, table.FreshMQ3Max())
	require.Equal(t, 150.0, table.MeanSpectralFresh()[0])
	require.Equal(t, 400.0, table.MeanSpectralSemi()[0])
}

func TestLoadStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.csv")
	content := string(rune(0xFEFF)) + header() + row("Fresh", 1.0, 0.5, 200) + row("Semi-Fresh", 1.0, 0.5, 400)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.NoError(t, err)
}

func TestLoadSkipsUnparseableRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.csv")
	content := header() + "Fresh,not-a-number,0.5," + rowTail() + row("Fresh", 1.0, 0.5, 200) + row("Semi-Fresh", 1.0, 0.5, 400)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1.0, table.FreshMQ137Max())
}

func rowTail() string {
	out := ""
	for i := 0; i < 18; i++ {
		if i > 0 {
			out += ","
		}
		out += "200"
	}
	return out + "\n"
}

func TestLoadFailsFatallyWhenMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	require.ErrorIs(t, err, domainerr.ErrCalibrationMissing)
}

func TestLoadFailsWhenClassEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.csv")
	content := header() + row("Fresh", 1.0, 0.5, 200)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.ErrorIs(t, err, domainerr.ErrCalibrationInvalid)
}
