// Package reportdiff compares two captured baselines and reports which gas
// and spectral channels drifted between them.
package reportdiff

import (
	"fmt"
	"strings"
	"time"

	"github.com/poultriscan/poultriscan/internal/frame"
)

// Direction names whether a metric moved up, down, or stayed flat.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// negligiblePct is the relative-change floor below which a metric is
// reported as flat rather than as a spurious up/down blip.
const negligiblePct = 1.0

// MetricChange is one field's movement between two baselines.
type MetricChange struct {
	Category  string // "env", "gas", "spectral"
	Metric    string
	OldValue  float64
	NewValue  float64
	Delta     float64
	DeltaPct  float64
	Direction Direction
}

// BaselineDiff is the full comparison between two baselines captured at
// different times.
type BaselineDiff struct {
	Old time.Time
	New time.Time

	TimeDelta time.Duration
	Changes   []MetricChange
}

// Diff compares old against next, one MetricChange per env/gas/spectral
// field. Any field (env, gas, or spectral) below negligiblePct relative
// change is omitted from Changes entirely to keep the report focused on real
// drift.
func Diff(old, next frame.Baseline) BaselineDiff {
	d := BaselineDiff{
		Old:       old.Timestamp,
		New:       next.Timestamp,
		TimeDelta: next.Timestamp.Sub(old.Timestamp),
	}

	addChange(&d, "env", "ambient_temp", old.AmbientTemp, next.AmbientTemp)
	addChange(&d, "env", "ambient_hum", old.AmbientHum, next.AmbientHum)
	addChange(&d, "gas", "mq137", old.GasBaseline.MQ137, next.GasBaseline.MQ137)
	addChange(&d, "gas", "mq135", old.GasBaseline.MQ135, next.GasBaseline.MQ135)
	addChange(&d, "gas", "mq4", old.GasBaseline.MQ4, next.GasBaseline.MQ4)
	addChange(&d, "gas", "mq3", old.GasBaseline.MQ3, next.GasBaseline.MQ3)
	for ch := 0; ch < frame.SpectralChannels; ch++ {
		addChange(&d, "spectral", fmt.Sprintf("white_ref_ch%d", ch+1), old.WhiteRef[ch], next.WhiteRef[ch])
		addChange(&d, "spectral", fmt.Sprintf("dark_ref_ch%d", ch+1), old.DarkRef[ch], next.DarkRef[ch])
	}

	return d
}

// addChange computes delta/deltaPct for one field and appends it to d.Changes
// unless the relative change is negligible.
func addChange(d *BaselineDiff, category, metric string, oldV, newV float64) {
	delta := newV - oldV
	var pct float64
	if oldV != 0 {
		pct = (delta / oldV) * 100
	} else if newV != 0 {
		pct = 100
	}

	dir := DirectionFlat
	if pct > negligiblePct {
		dir = DirectionUp
	} else if pct < -negligiblePct {
		dir = DirectionDown
	}
	if dir == DirectionFlat {
		return
	}

	d.Changes = append(d.Changes, MetricChange{
		Category:  category,
		Metric:    metric,
		OldValue:  oldV,
		NewValue:  newV,
		Delta:     delta,
		DeltaPct:  pct,
		Direction: dir,
	})
}

// Format renders d as a human-readable multi-line report.
func Format(d BaselineDiff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Baseline diff: %s -> %s (%s)\n", d.Old.Format(time.RFC3339), d.New.Format(time.RFC3339), d.TimeDelta)
	if len(d.Changes) == 0 {
		b.WriteString("  no significant changes\n")
		return b.String()
	}
	for _, c := range d.Changes {
		fmt.Fprintf(&b, "  [%s] %s: %.4f -> %.4f (%s %.1f%%)\n", c.Category, c.Metric, c.OldValue, c.NewValue, c.Direction, c.DeltaPct)
	}
	return b.String()
}
