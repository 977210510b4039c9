// Package sim provides a simulated HAL: deterministic or pseudo-randomized
// readings that never touch a bus. It is selected explicitly, only by the
// --simulate flag; when a real driver's New fails at startup the command
// returns that error and no sim device is swapped in -- unlike the source's
// import-time try/except fallback to a module-level mock object, there is no
// hidden global here; the caller decides to construct a sim.Bundle.
package sim

import (
	"context"
	"math/rand"

	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/hal"
)

// Env is a simulated EnvSensor returning values in the ranges the source's
// MockAHT20 used.
type Env struct{ rng *rand.Rand }

func NewEnv(seed int64) *Env { return &Env{rng: rand.New(rand.NewSource(seed))} }

func (e *Env) Read(ctx context.Context) (frame.EnvReading, error) {
	return frame.EnvReading{
		TempC:       25.0 + e.rng.Float64()*5.0,
		HumidityPct: 50.0 + e.rng.Float64()*20.0,
	}, nil
}

// Gas is a simulated GasArray.
type Gas struct{ rng *rand.Rand }

func NewGas(seed int64) *Gas { return &Gas{rng: rand.New(rand.NewSource(seed))} }

func (g *Gas) Read(ctx context.Context) (frame.GasReading, error) {
	v := func() float64 { return 0.1 + g.rng.Float64()*0.5 }
	return frame.GasReading{MQ137: v(), MQ135: v(), MQ4: v(), MQ3: v()}, nil
}

// Spectrometer is a simulated 18-channel spectrometer. EnableBulb/DisableBulb
// are tracked but have no effect on the generated channel values beyond
// recording which bulbs are currently on, for tests that assert cleanup.
type Spectrometer struct {
	rng      *rand.Rand
	channels [18]float64
	bulbsOn  map[hal.Bulb]bool
}

func NewSpectrometer(seed int64) *Spectrometer {
	return &Spectrometer{rng: rand.New(rand.NewSource(seed)), bulbsOn: map[hal.Bulb]bool{}}
}

func (s *Spectrometer) EnableBulb(b hal.Bulb) error {
	s.bulbsOn[b] = true
	return nil
}

func (s *Spectrometer) DisableBulb(b hal.Bulb) error {
	s.bulbsOn[b] = false
	return nil
}

// BulbOn reports whether b is currently recorded as enabled, for tests.
func (s *Spectrometer) BulbOn(b hal.Bulb) bool {
	return s.bulbsOn[b]
}

func (s *Spectrometer) TakeMeasurement(ctx context.Context) error {
	for i := range s.channels {
		s.channels[i] = 150.0 + s.rng.Float64()*150.0
	}
	return nil
}

func (s *Spectrometer) Channel(n int) (float64, error) {
	if n < 1 || n > 18 {
		return 0, nil
	}
	return s.channels[n-1], nil
}

// Fan is a simulated Fan recording the last duty set, for tests asserting
// the cleanup invariant.
type Fan struct {
	Duty int
}

func (f *Fan) SetDuty(pct int) error {
	f.Duty = pct
	return nil
}

// Illuminator is a simulated Illuminator recording its last state.
type Illuminator struct {
	On bool
}

func (i *Illuminator) Set(on bool) error {
	i.On = on
	return nil
}

// NewBundle builds a fully simulated hal.Bundle with a fixed seed, handy for
// both --simulate runs and deterministic tests.
func NewBundle(seed int64) *hal.Bundle {
	return &hal.Bundle{
		Env:          NewEnv(seed),
		Gas:          NewGas(seed + 1),
		Spectrometer: NewSpectrometer(seed + 2),
		Fan:          &Fan{},
		Illuminator:  &Illuminator{},
	}
}
