// Package persist implements the header-aware, append-only CSV writers for
// every PoultriScan schema, plus the baseline history writer. Each writer
// writes its canonical header only when the destination file does not yet
// exist; headers never change once written.
package persist

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/poultriscan/poultriscan/internal/domainerr"
	"github.com/poultriscan/poultriscan/internal/frame"
)

// Appender writes header-then-rows to one CSV file, flushing every row.
type Appender struct {
	path   string
	header []string
}

// NewAppender builds an Appender for path with the given canonical header.
func NewAppender(path string, header []string) *Appender {
	return &Appender{path: path, header: header}
}

// Append writes row (and the header first, if the file is new).
func (a *Appender) Append(row []string) error {
	_, statErr := os.Stat(a.path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("persist: open %s: %w: %v", a.path, domainerr.ErrPersistence, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(a.header); err != nil {
			return fmt.Errorf("persist: write header %s: %w: %v", a.path, domainerr.ErrPersistence, err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("persist: write row %s: %w: %v", a.path, domainerr.ErrPersistence, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("persist: write row %s: %w: %v", a.path, domainerr.ErrPersistence, err)
	}
	return nil
}

// f formats a float64 as its decimal string, or the literal "NaN" for a
// missing value. Every appender in this package routes numeric fields
// through this so "NaN" is never silently rendered as "0".
func f(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func i(v int) string { return strconv.Itoa(v) }

// ReportHeader and ReportAppender implement the dashboard-scan canonical
// report schema (poultri_scan_report.csv).
var ReportHeader = []string{
	"Timestamp", "Sample ID", "Type", "Temperature", "Humidity",
	"WHC Index", "Fatty Acid Profile", "Myoglobin",
	"MQ-137 (Ammonia)", "MQ-135 (Air Quality)", "MQ-3 (Alcohol)", "MQ-4 (Methane)",
	"Quality",
}

func NewReportAppender(path string) *Appender { return NewAppender(path, ReportHeader) }

func AppendReport(a *Appender, fr frame.Frame, v frame.Verdict) error {
	return a.Append([]string{
		fr.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		fr.Meta.SampleID,
		fr.Meta.MeatType,
		f(fr.Env.TempC),
		f(fr.Env.HumidityPct),
		i(v.WHCIdx),
		i(v.FACIdx),
		i(v.MyoIdx),
		f(fr.Gas.MQ137),
		f(fr.Gas.MQ135),
		f(fr.Gas.MQ3),
		f(fr.Gas.MQ4),
		string(v.Category),
	})
}

// RawDatabaseHeader and appender implement the per-shot raw log
// (raw_database_log.csv).
var RawDatabaseHeader = append([]string{
	"sample_id", "scan_iter", "temp", "hum", "mq_137", "mq_135", "mq_4", "mq_3",
}, spectralHeaderNames("as7265x_ch")...)

func NewRawDatabaseAppender(path string) *Appender { return NewAppender(path, RawDatabaseHeader) }

func AppendRawDatabase(a *Appender, fr frame.Frame) error {
	row := []string{
		fr.Meta.SampleID, i(fr.Meta.Iteration),
		f(fr.Env.TempC), f(fr.Env.HumidityPct),
		f(fr.Gas.MQ137), f(fr.Gas.MQ135), f(fr.Gas.MQ4), f(fr.Gas.MQ3),
	}
	row = append(row, spectralRow(fr.SpectrumWhite)...)
	return a.Append(row)
}

// BaselineHistoryHeader and appender implement baseline_collection.csv.
var BaselineHistoryHeader = append(append([]string{
	"timestamp_iso", "operator", "ambient_temp", "ambient_hum",
	"baseline_mq137", "baseline_mq135", "baseline_mq4", "baseline_mq3",
}, spectralHeaderNames("as_dark_ref_ch")...), spectralHeaderNames("as_white_ref_ch")...)

func NewBaselineHistoryAppender(path string) *Appender {
	return NewAppender(path, BaselineHistoryHeader)
}

func AppendBaselineHistory(a *Appender, b frame.Baseline) error {
	row := []string{
		b.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		b.Operator,
		f(b.AmbientTemp), f(b.AmbientHum),
		f(b.GasBaseline.MQ137), f(b.GasBaseline.MQ135), f(b.GasBaseline.MQ4), f(b.GasBaseline.MQ3),
	}
	row = append(row, spectralRow(b.DarkRef[:])...)
	row = append(row, spectralRow(b.WhiteRef[:])...)
	return a.Append(row)
}

func spectralHeaderNames(prefix string) []string {
	names := make([]string, frame.SpectralChannels)
	for i := 1; i <= frame.SpectralChannels; i++ {
		names[i-1] = fmt.Sprintf("%s%d", prefix, i)
	}
	return names
}

func spectralRow(channels []float64) []string {
	out := make([]string, frame.SpectralChannels)
	for i := 0; i < frame.SpectralChannels; i++ {
		if i < len(channels) {
			out[i] = f(channels[i])
		} else {
			out[i] = "NaN"
		}
	}
	return out
}
