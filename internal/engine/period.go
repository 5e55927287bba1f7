package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/tartampluch/go-perks/internal/config"
)

// ExpiryDate returns the end of the benefit cycle containing "now": the next
// period boundary strictly after it. Pure date math, no clock reads.
//
// Boundaries are anchored to a fixed calendar epoch (the first day of the
// anchor's year), so every card sharing a period lands on the same boundaries
// regardless of when it was added. For the monthly period this degenerates to
// the first day of the month following "now" (a calendar-month reset, not a
// rolling 30-day window).
//
// If "now" falls exactly on a boundary the next one is returned; a fresh
// computation never yields zero days left. Month-length variation and leap
// years are handled by calendar arithmetic via time.Date normalization.
//
// All math is day-granular in the location of "now". Cross-timezone travel
// mid-cycle is a known limitation, not handled here.
func ExpiryDate(periodMonths int, anchor, now time.Time) (time.Time, error) {
	if !Period(periodMonths).Valid() {
		return time.Time{}, newValidationError(config.ErrPeriodInvalid)
	}

	loc := now.Location()
	epoch := time.Date(anchor.Year(), time.January, 1, 0, 0, 0, 0, loc)

	// Anchor in a future year: every supported period divides 12, so the
	// boundary grid is identical from Jan 1 of any year. Clamp the epoch to
	// now's year and let the elapsed-months arithmetic run.
	if epoch.After(now) {
		epoch = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
	}

	// Count whole months elapsed since the epoch, then step to the first
	// period multiple strictly beyond them. Day-of-month never matters because
	// every boundary is a first-of-month.
	elapsed := (now.Year()-epoch.Year())*12 + int(now.Month()) - int(epoch.Month())
	next := (elapsed/periodMonths + 1) * periodMonths

	return epoch.AddDate(0, next, 0), nil
}

// CycleID deterministically names the cycle that ends at the given expiry
// boundary. Replanning after a restart or a preference change reproduces the
// same identifier for the same cycle, which keeps reminder dedupe keys stable.
func CycleID(periodMonths int, expiry time.Time) string {
	return fmt.Sprintf("%dm-%04d-%02d", periodMonths, expiry.Year(), int(expiry.Month()))
}

// DaysUntil returns the whole calendar days from "now" to the target date,
// ignoring time of day on both sides. Negative when the target has passed.
func DaysUntil(target, now time.Time) int {
	loc := now.Location()
	t := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, loc)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	// Round instead of truncate so DST-shortened days still count as one day.
	return int(math.Round(t.Sub(n).Hours() / 24))
}
