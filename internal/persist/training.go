package persist

import (
	"github.com/poultriscan/poultriscan/internal/frame"
)

// RawBlockHeader and appender implement raw_block_data_v3_mq3_no_uvir.csv,
// one row per shot and illumination pass within a training block, tagged with
// which illumination pass the row's spectral columns belong to.
var RawBlockHeader = append([]string{
	"sample_id", "block", "shot", "pass", "temp", "hum", "mq_137", "mq_135", "mq_4", "mq_3",
}, spectralHeaderNames("ch")...)

func NewRawBlockAppender(path string) *Appender { return NewAppender(path, RawBlockHeader) }

// IlluminationPass names which bulb was active for a training raw-block row.
type IlluminationPass string

const (
	PassWhite IlluminationPass = "WHITE"
	PassUV    IlluminationPass = "UV"
	PassIR    IlluminationPass = "IR"
)

func AppendRawBlock(a *Appender, fr frame.Frame, block, shot int, pass IlluminationPass, spectrum []float64) error {
	row := []string{
		fr.Meta.SampleID, i(block), i(shot), string(pass),
		f(fr.Env.TempC), f(fr.Env.HumidityPct),
		f(fr.Gas.MQ137), f(fr.Gas.MQ135), f(fr.Gas.MQ4), f(fr.Gas.MQ3),
	}
	row = append(row, spectralRow(spectrum)...)
	return a.Append(row)
}

// TrainingCanonicalHeader and appender implement
// data_collection_v3_mq3_no_uvir.csv: one row per sample, after the
// three-block-of-five average-of-averages and the operator's ground-truth
// label.
var TrainingCanonicalHeader = append(append([]string{
	"sample_id", "meat_type", "storage", "replica", "hour", "temp", "hum",
	"mq_137", "mq_135", "mq_4", "mq_3", "spoilage_label",
}, spectralHeaderNames("as_raw_ch")...),
	append(spectralHeaderNames("uv_raw_ch"), spectralHeaderNames("ir_raw_ch")...)...)

func NewTrainingCanonicalAppender(path string) *Appender {
	return NewAppender(path, TrainingCanonicalHeader)
}

func AppendTrainingCanonical(a *Appender, fr frame.Frame, label string) error {
	row := []string{
		fr.Meta.SampleID, fr.Meta.MeatType, fr.Meta.Storage, i(fr.Meta.Replica), i(fr.Meta.Hour),
		f(fr.Env.TempC), f(fr.Env.HumidityPct),
		f(fr.Gas.MQ137), f(fr.Gas.MQ135), f(fr.Gas.MQ4), f(fr.Gas.MQ3),
		label,
	}
	row = append(row, spectralRow(fr.SpectrumWhite)...)
	row = append(row, spectralRow(fr.SpectrumUV)...)
	row = append(row, spectralRow(fr.SpectrumIR)...)
	return a.Append(row)
}

// ContinuousRawHeader and appender implement continuous_raw_data.csv.
var ContinuousRawHeader = append([]string{
	"timestamp_iso", "temp", "hum", "mq_137", "mq_135", "mq_4", "mq_3",
}, spectralHeaderNames("ch")...)

func NewContinuousRawAppender(path string) *Appender {
	return NewAppender(path, ContinuousRawHeader)
}

func AppendContinuousRaw(a *Appender, fr frame.Frame) error {
	row := []string{
		fr.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		f(fr.Env.TempC), f(fr.Env.HumidityPct),
		f(fr.Gas.MQ137), f(fr.Gas.MQ135), f(fr.Gas.MQ4), f(fr.Gas.MQ3),
	}
	row = append(row, spectralRow(fr.SpectrumWhite)...)
	return a.Append(row)
}

// ContinuousAveragedHeader and appender implement
// continuous_averaged_data.csv: one row per closed tumbling window.
var ContinuousAveragedHeader = append([]string{
	"window_end_iso", "temp", "hum", "mq_137", "mq_135", "mq_4", "mq_3",
}, spectralHeaderNames("ch")...)

func NewContinuousAveragedAppender(path string) *Appender {
	return NewAppender(path, ContinuousAveragedHeader)
}

func AppendContinuousAveraged(a *Appender, fr frame.Frame) error {
	row := []string{
		fr.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		f(fr.Env.TempC), f(fr.Env.HumidityPct),
		f(fr.Gas.MQ137), f(fr.Gas.MQ135), f(fr.Gas.MQ4), f(fr.Gas.MQ3),
	}
	row = append(row, spectralRow(fr.SpectrumWhite)...)
	return a.Append(row)
}
