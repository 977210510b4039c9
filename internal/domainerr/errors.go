// Package domainerr holds the sentinel errors shared across the acquisition
// pipeline. Every HAL, engine, and persistence failure is one of these,
// wrapped with fmt.Errorf("...: %w", ...) at the point of occurrence so
// errors.Is keeps working up the call stack.
package domainerr

import "errors"

var (
	// ErrNotInitialized means a HAL device never came up. Retriable only by
	// restarting the program.
	ErrNotInitialized = errors.New("hal: device not initialized")

	// ErrRead means a single transient device read failed. The caller
	// substitutes a placeholder reading and keeps going.
	ErrRead = errors.New("hal: read error")

	// ErrCancelled means the operator stopped a running engine. Not a
	// failure, but it flows through the same cleanup path as an error.
	ErrCancelled = errors.New("acquisition: cancelled")

	// ErrCalibrationMissing means the compiled calibration CSV could not be
	// opened at startup.
	ErrCalibrationMissing = errors.New("calibration: file missing")

	// ErrCalibrationInvalid means the calibration CSV was read but failed a
	// structural invariant (e.g. an empty label class).
	ErrCalibrationInvalid = errors.New("calibration: invalid")

	// ErrPurgeTimeout means the dynamic purge controller hit its 60s ceiling
	// before every gas sensor converged. Informational, not fatal.
	ErrPurgeTimeout = errors.New("purge: timeout")

	// ErrPersistence means a CSV or JSON append failed. The engine reports it
	// and continues; in-memory state is never corrupted by a write failure.
	ErrPersistence = errors.New("persistence: write failed")

	// ErrPreempted means a caller tried to acquire the hardware while another
	// engine already holds it.
	ErrPreempted = errors.New("acquisition: hardware already owned")
)
