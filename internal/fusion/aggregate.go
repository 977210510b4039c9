package fusion

import (
	"math"

	"github.com/poultriscan/poultriscan/internal/frame"
)

// Clamp restricts x to [lo, hi]. Every clamped quantity in the classifier
// calls it rather than re-deriving min/max inline.
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// AggregateMax combines shots from a single scan by elementwise maximum — a
// worst-case envelope appropriate for gas and spectral channels that drift
// upward under sustained exposure. Non-numeric fields (Meta, Timestamp) are
// taken from the first shot. Deliberately not shared with AggregateMean:
// the two aggregations encode an intentional asymmetry between dashboard
// scans and training capture, not two modes of one generic reducer.
func AggregateMax(shots []frame.Frame) frame.Frame {
	out := shots[0]
	out.Gas = shots[0].Gas
	out.Env = shots[0].Env
	for _, s := range shots[1:] {
		out.Env.TempC = math.Max(out.Env.TempC, s.Env.TempC)
		out.Env.HumidityPct = math.Max(out.Env.HumidityPct, s.Env.HumidityPct)
		out.Gas.MQ137 = math.Max(out.Gas.MQ137, s.Gas.MQ137)
		out.Gas.MQ135 = math.Max(out.Gas.MQ135, s.Gas.MQ135)
		out.Gas.MQ4 = math.Max(out.Gas.MQ4, s.Gas.MQ4)
		out.Gas.MQ3 = math.Max(out.Gas.MQ3, s.Gas.MQ3)
		out.SpectrumWhite = maxSlices(out.SpectrumWhite, s.SpectrumWhite)
		out.SpectrumUV = maxSlices(out.SpectrumUV, s.SpectrumUV)
		out.SpectrumIR = maxSlices(out.SpectrumIR, s.SpectrumIR)
	}
	return out
}

// AggregateMean combines shots from one training block by elementwise
// arithmetic mean, building a calibration-quality centroid rather than an
// envelope. See AggregateMax for why these are kept as two distinct
// functions instead of a single parameterized reducer.
func AggregateMean(shots []frame.Frame) frame.Frame {
	n := float64(len(shots))
	out := shots[0]
	var sumTemp, sumHum, sumMQ137, sumMQ135, sumMQ4, sumMQ3 float64
	var sumWhite, sumUV, sumIR []float64
	for _, s := range shots {
		sumTemp += s.Env.TempC
		sumHum += s.Env.HumidityPct
		sumMQ137 += s.Gas.MQ137
		sumMQ135 += s.Gas.MQ135
		sumMQ4 += s.Gas.MQ4
		sumMQ3 += s.Gas.MQ3
		sumWhite = sumSlices(sumWhite, s.SpectrumWhite)
		sumUV = sumSlices(sumUV, s.SpectrumUV)
		sumIR = sumSlices(sumIR, s.SpectrumIR)
	}
	out.Env.TempC = sumTemp / n
	out.Env.HumidityPct = sumHum / n
	out.Gas.MQ137 = sumMQ137 / n
	out.Gas.MQ135 = sumMQ135 / n
	out.Gas.MQ4 = sumMQ4 / n
	out.Gas.MQ3 = sumMQ3 / n
	out.SpectrumWhite = divSlice(sumWhite, n)
	out.SpectrumUV = divSlice(sumUV, n)
	out.SpectrumIR = divSlice(sumIR, n)
	return out
}

func maxSlices(a, b []float64) []float64 {
	if a == nil || b == nil {
		if a != nil {
			return a
		}
		return b
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = math.Max(a[i], b[i])
	}
	return out
}

func sumSlices(a, b []float64) []float64 {
	if b == nil {
		return a
	}
	if a == nil {
		a = make([]float64, len(b))
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func divSlice(a []float64, n float64) []float64 {
	if a == nil {
		return nil
	}
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = v / n
	}
	return out
}
