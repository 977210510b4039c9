package config

import "fmt"

// Profile is a named preset overlay for a run's timing, adapted from the
// teacher's scan-profile concept: a small set of named, hand-tuned
// parameter bundles instead of one flat always-same configuration.
type Profile struct {
	Name string

	ScanShots        int
	ScanShotInterval float64

	ContinuousInterval float64
	ContinuousWindow   int
}

var profiles = map[string]Profile{
	"quick": {
		Name:               "quick",
		ScanShots:          3,
		ScanShotInterval:   0.3,
		ContinuousInterval: 2,
		ContinuousWindow:   30,
	},
	"standard": {
		Name:               "standard",
		ScanShots:          5,
		ScanShotInterval:   0.5,
		ContinuousInterval: 5,
		ContinuousWindow:   60,
	},
	"deep": {
		Name:               "deep",
		ScanShots:          9,
		ScanShotInterval:   0.75,
		ContinuousInterval: 10,
		ContinuousWindow:   120,
	},
}

// GetProfile looks up a named preset. Unknown names fall back to "standard"
// rather than erroring, since a profile only tunes timing, never behavior.
func GetProfile(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return profiles["standard"]
}

// ProfileNames lists the known preset names, for CLI flag help text.
func ProfileNames() []string {
	return []string{"quick", "standard", "deep"}
}

// Apply overlays p's timing onto cfg, returning a new Config. Fields
// outside scan/continuous timing are left untouched.
func (p Profile) Apply(cfg Config) Config {
	cfg.Profile = p.Name
	cfg.Scan.Shots = p.ScanShots
	cfg.Scan.ShotInterval = p.ScanShotInterval
	cfg.Continuous.IntervalSeconds = p.ContinuousInterval
	cfg.Continuous.Window = p.ContinuousWindow
	return cfg
}

// String renders a profile for CLI listings.
func (p Profile) String() string {
	return fmt.Sprintf("%s: %d shots @ %.2fs, continuous %.0fs/%d-window", p.Name, p.ScanShots, p.ScanShotInterval, p.ContinuousInterval, p.ContinuousWindow)
}
