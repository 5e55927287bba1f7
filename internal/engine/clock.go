package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// Every date computation in this package takes "now" as an explicit argument;
// the Clock is how the application layer obtains that argument exactly once
// per pass instead of sprinkling implicit clock reads through the logic.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}
