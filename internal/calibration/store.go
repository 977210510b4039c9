// Package calibration loads the compiled training CSV at program start and
// computes the per-channel spectral centroids and gas safety thresholds the
// classifier needs. The resulting Table is immutable for the life of the
// process.
package calibration

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/poultriscan/poultriscan/internal/domainerr"
	"github.com/poultriscan/poultriscan/internal/frame"
)

const (
	labelFresh = "Fresh"
	labelSemi  = "Semi-Fresh"

	// WHCBase is the constant water-holding-capacity baseline the classifier
	// subtracts its gas-penalty term from.
	WHCBase = 88.0
)

// Table is the immutable set of derived thresholds and centroids the
// classifier consumes. All fields are unexported; Table is built once by
// Load and only ever read through its accessors thereafter.
type Table struct {
	meanSpectralFresh [frame.SpectralChannels]float64
	meanSpectralSemi  [frame.SpectralChannels]float64

	freshCh2Min    float64
	freshMQ137Max  float64
	freshMQ3Max    float64
	maxRedness     float64
	maxLuma        float64
}

func (t *Table) MeanSpectralFresh() [frame.SpectralChannels]float64 { return t.meanSpectralFresh }
func (t *Table) MeanSpectralSemi() [frame.SpectralChannels]float64  { return t.meanSpectralSemi }
func (t *Table) FreshCh2Min() float64                               { return t.freshCh2Min }
func (t *Table) FreshMQ137Max() float64                             { return t.freshMQ137Max }
func (t *Table) FreshMQ3Max() float64                               { return t.freshMQ3Max }
func (t *Table) MaxRedness() float64                                { return t.maxRedness }
func (t *Table) MaxLuma() float64                                   { return t.maxLuma }

// Load opens path, parses every row, and computes the derived Table.
// Returns domainerr.ErrCalibrationMissing if the file cannot be opened, or
// domainerr.ErrCalibrationInvalid if either label class ends up empty.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("calibration: open %s: %w: %v", path, domainerr.ErrCalibrationMissing, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("calibration: read header: %w: %v", domainerr.ErrCalibrationInvalid, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], string(rune(0xFEFF)))
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	var freshMQ137, freshMQ3, freshReds, freshCh2, allLumas []float64
	var freshSpectral, semiSpectral [frame.SpectralChannels][]float64

	get := func(row []string, name string) (float64, bool) {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		labelIdx, ok := col["spoilage_label"]
		if !ok || labelIdx >= len(row) {
			continue
		}
		label := strings.TrimSpace(row[labelIdx])

		mq137, ok1 := get(row, "mq137_v_rs")
		mq3, ok2 := get(row, "mq3_v_rs")
		if !ok1 || !ok2 {
			continue
		}

		var channels [frame.SpectralChannels]float64
		rowValid := true
		for ch := 1; ch <= frame.SpectralChannels; ch++ {
			v, ok := get(row, fmt.Sprintf("as_raw_ch%d", ch))
			if !ok {
				rowValid = false
				break
			}
			channels[ch-1] = v
		}
		if !rowValid {
			continue
		}

		luma := mean3(channels[1], channels[4], channels[6]) // ch2, ch5, ch7 (1-indexed)
		allLumas = append(allLumas, luma)

		switch label {
		case labelFresh:
			freshMQ137 = append(freshMQ137, mq137)
			freshMQ3 = append(freshMQ3, mq3)
			freshReds = append(freshReds, mean3(channels[8], channels[9], channels[10])) // ch9,10,11
			freshCh2 = append(freshCh2, channels[1])
			for ch := 0; ch < frame.SpectralChannels; ch++ {
				freshSpectral[ch] = append(freshSpectral[ch], channels[ch])
			}
		case labelSemi:
			for ch := 0; ch < frame.SpectralChannels; ch++ {
				semiSpectral[ch] = append(semiSpectral[ch], channels[ch])
			}
		}
	}

	if len(freshMQ137) == 0 {
		return nil, fmt.Errorf("calibration: no rows labelled %q: %w", labelFresh, domainerr.ErrCalibrationInvalid)
	}
	if len(semiSpectral[0]) == 0 {
		return nil, fmt.Errorf("calibration: no rows labelled %q: %w", labelSemi, domainerr.ErrCalibrationInvalid)
	}

	t := &Table{
		freshCh2Min:   minOf(freshCh2),
		freshMQ137Max: maxOf(freshMQ137),
		freshMQ3Max:   maxOf(freshMQ3),
		maxLuma:       maxOf(allLumas),
		maxRedness:    percentile95(freshReds),
	}
	for ch := 0; ch < frame.SpectralChannels; ch++ {
		t.meanSpectralFresh[ch] = mean(freshSpectral[ch])
		t.meanSpectralSemi[ch] = mean(semiSpectral[ch])
	}
	return t, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func mean3(a, b, c float64) float64 { return (a + b + c) / 3.0 }

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// percentile95 returns the 95th-percentile value of xs after sorting
// ascending, clamping the index to the last element.
func percentile95(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	idx := int(0.95 * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
