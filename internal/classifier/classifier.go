// Package classifier maps one fused frame to a quality verdict: a spectral
// nearest-centroid decision gated by gas and channel-2 safety limits, plus
// four clamped biochemical UI indices.
package classifier

import (
	"math"

	"github.com/poultriscan/poultriscan/internal/calibration"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/fusion"
)

// Classifier holds the calibration table its decisions are gated by.
type Classifier struct {
	table *calibration.Table
}

// New builds a Classifier over table. No division below guards against a
// zero denominator with an epsilon, and calibration.Load does not reject
// zero thresholds, so a zero in the calibration file reaches those divisions.
func New(table *calibration.Table) *Classifier {
	return &Classifier{table: table}
}

// Classify runs the full decision pipeline against f's white-illumination
// spectrum and the latest gas reading.
func (c *Classifier) Classify(f frame.Frame) frame.Verdict {
	v := spectralVector(f)
	score := c.classificationScore(v, f.Gas)

	redness := mean3(v[8], v[9], v[10]) // ch9, ch10, ch11 (1-indexed)
	myoEst := fusion.Clamp((redness/c.table.MaxRedness())*2.5, 0.1, 3.5)

	luma := mean3(v[1], v[4], v[6]) // ch2, ch5, ch7 (1-indexed)
	fatEst := fusion.Clamp((luma/c.table.MaxLuma())*6.0, 0.5, 8.0)

	whcEst := fusion.Clamp(calibration.WHCBase-(f.Gas.MQ137/(c.table.FreshMQ137Max()*1.5))*20.0, 50.0, 95.0)

	enoseIdx := int(fusion.Clamp(math.Round(100-f.Gas.MQ137*30), 0, 100))
	whcIdx := int(math.Round(whcEst))
	facIdx := int(math.Round((fatEst / 8.0) * 100))
	myoIdx := int(math.Round((myoEst / 3.5) * 100))

	grade, category, color := grade(score)

	return frame.Verdict{
		Grade:    grade,
		Category: category,
		ColorTag: color,
		EnoseIdx: enoseIdx,
		WHCIdx:   whcIdx,
		FACIdx:   facIdx,
		MyoIdx:   myoIdx,
	}
}

// classificationScore applies the safety limits first, falling back to a
// nearest-centroid Euclidean distance only when neither limit fires.
func (c *Classifier) classificationScore(v [frame.SpectralChannels]float64, gas frame.GasReading) float64 {
	if v[1] < c.table.FreshCh2Min() { // channel 2, 1-indexed
		return 25
	}
	if gas.MQ137 > c.table.FreshMQ137Max() || gas.MQ3 > c.table.FreshMQ3Max() {
		return 35
	}

	fresh := c.table.MeanSpectralFresh()
	semi := c.table.MeanSpectralSemi()
	dFresh := euclidean(v, fresh)
	dSemi := euclidean(v, semi)
	if dFresh < dSemi {
		return 95
	}
	return 65
}

func grade(score float64) (frame.Grade, frame.Category, frame.ColorTag) {
	switch {
	case score >= 80:
		return frame.GradeA, frame.CategoryFresh, frame.ColorHigh
	case score >= 50:
		return frame.GradeB, frame.CategorySemiFresh, frame.ColorNormal
	default:
		return frame.GradeC, frame.CategorySpoilt, frame.ColorLow
	}
}

func spectralVector(f frame.Frame) [frame.SpectralChannels]float64 {
	var v [frame.SpectralChannels]float64
	copy(v[:], f.SpectrumWhite)
	return v
}

func euclidean(a, b [frame.SpectralChannels]float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func mean3(a, b, c float64) float64 { return (a + b + c) / 3.0 }
