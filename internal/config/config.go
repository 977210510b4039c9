// Package config loads config.yaml, documenting the same defaults as the
// component design in the absence of a file: a missing config.yaml is not
// fatal (unlike a missing calibration CSV, which aborts startup), and fields
// absent from the file keep their documented defaults; a field set in the
// file, zero included, overrides its default.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level on-disk shape of config.yaml. Every field mirrors
// a constant named in the component design; the YAML file only needs to
// override the ones an installation actually wants to change.
type Config struct {
	CalibrationPath string `yaml:"calibration_path"`
	DataDir         string `yaml:"data_dir"`

	I2C I2CConfig `yaml:"i2c"`
	GPIO GPIOConfig `yaml:"gpio"`

	Scan       ScanConfig       `yaml:"scan"`
	Continuous ContinuousConfig `yaml:"continuous"`
	Training   TrainingConfig   `yaml:"training"`
	Purge      PurgeConfig      `yaml:"purge"`

	Profile string `yaml:"profile"`
}

type I2CConfig struct {
	Bus string `yaml:"bus"`
}

type GPIOConfig struct {
	FanPin int `yaml:"fan_pin"`
	LEDPin int `yaml:"led_pin"`
}

type ScanConfig struct {
	Shots        int     `yaml:"shots"`
	ShotInterval float64 `yaml:"shot_interval_seconds"`
}

type ContinuousConfig struct {
	IntervalSeconds float64 `yaml:"interval_seconds"`
	Window          int     `yaml:"window"`
}

type TrainingConfig struct {
	Blocks        int     `yaml:"blocks"`
	ShotsPerBlock int     `yaml:"shots_per_block"`
	ShotIdle      float64 `yaml:"shot_idle_seconds"`
	BlockIdle     float64 `yaml:"block_idle_seconds"`
}

type PurgeConfig struct {
	Tolerance           float64 `yaml:"tolerance"`
	CheckIntervalSecond float64 `yaml:"check_interval_seconds"`
	TimeoutSeconds      float64 `yaml:"timeout_seconds"`
}

// Default returns the documented built-in configuration, matching the
// constants named throughout the component design.
func Default() Config {
	return Config{
		CalibrationPath: "[COMPILED POULTRISCAN DATA.csv",
		DataDir:         "data",
		I2C:             I2CConfig{Bus: "/dev/i2c-1"},
		GPIO:            GPIOConfig{FanPin: 27, LEDPin: 17},
		Scan:            ScanConfig{Shots: 5, ShotInterval: 0.5},
		Continuous:      ContinuousConfig{IntervalSeconds: 5, Window: 60},
		Training:        TrainingConfig{Blocks: 3, ShotsPerBlock: 5, ShotIdle: 3, BlockIdle: 5},
		Purge:           PurgeConfig{Tolerance: 0.05, CheckIntervalSecond: 3, TimeoutSeconds: 60},
		Profile:         "standard",
	}
}

// Load reads path and overlays it onto Default(); a missing file returns the
// defaults unchanged, since config.yaml is an ambient convenience, not a
// startup requirement.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
