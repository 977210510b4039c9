package hal

import "context"

// Bundle wires every HAL capability into the single object passed by
// reference into each engine. Engines may call through Bundle's fields but
// never close the underlying bus handles themselves — ownership stays with
// whoever constructed the Bundle.
type Bundle struct {
	Env          EnvSensor
	Gas          GasArray
	Spectrometer Spectrometer
	Fan          Fan
	Illuminator  Illuminator
}

// Cleanup disables every bulb, turns the strip LED off, and sets the fan
// duty to zero, swallowing individual errors. Engines call this on their
// error and cancellation paths; it is not called on a successful engine
// return or at process shutdown. It is the one place the "bulbs off, LED
// off, fan zero" invariant is implemented.
func (b *Bundle) Cleanup() {
	if b.Spectrometer != nil {
		_ = b.Spectrometer.DisableBulb(BulbWhite)
		_ = b.Spectrometer.DisableBulb(BulbUV)
		_ = b.Spectrometer.DisableBulb(BulbIR)
	}
	if b.Illuminator != nil {
		_ = b.Illuminator.Set(false)
	}
	if b.Fan != nil {
		_ = b.Fan.SetDuty(0)
	}
}

// CleanupCtx is Cleanup with a context parameter for callers that want to
// bound shutdown with a timeout; no caller in this module uses it. The context is not
// currently consulted by any HAL call, since every Cleanup operation is a
// single cheap GPIO/I2C write, but the signature keeps the call site
// consistent with every other HAL entry point.
func (b *Bundle) CleanupCtx(_ context.Context) {
	b.Cleanup()
}
