package engine

import "time"

// Clock supplies the current time to the engine.
//
// The engine holds no timers of its own: schedule checks happen only when
// an external scheduler calls Tick, and every timestamp in execution
// records comes from this interface so tests can freeze time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
