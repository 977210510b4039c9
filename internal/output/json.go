package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/poultriscan/poultriscan/internal/frame"
)

// WriteBaselineJSON serializes baseline as indented JSON to path
// (baselines/<ts>.json per the baseline persistence contract). If path is
// "-" or empty, writes to stdout instead.
func WriteBaselineJSON(baseline frame.Baseline, path string) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("output: create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(baseline); err != nil {
		return fmt.Errorf("output: encode baseline: %w", err)
	}
	return nil
}

// ReadBaselineJSON loads a baseline previously written by WriteBaselineJSON.
func ReadBaselineJSON(path string) (frame.Baseline, error) {
	f, err := os.Open(path)
	if err != nil {
		return frame.Baseline{}, fmt.Errorf("output: open %s: %w", path, err)
	}
	defer f.Close()

	var b frame.Baseline
	if err := json.NewDecoder(f).Decode(&b); err != nil {
		return frame.Baseline{}, fmt.Errorf("output: decode %s: %w", path, err)
	}
	return b, nil
}
