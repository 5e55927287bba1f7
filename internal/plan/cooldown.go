package plan

import (
	"time"

	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/engine"
)

// ShouldShow decides whether a recurring prompt (permission banner, re-ask
// after "later", and so on) may be displayed again. It holds no state: the
// caller owns the CooldownRecord and passes its lastShownAt, the zero time
// meaning the prompt has never been shown.
//
// Rules, in order: a choice that already enabled the feature suppresses the
// prompt; a disabled prompt never shows; a never-shown prompt always shows;
// otherwise the prompt is eligible once at least cooldownDays whole days have
// elapsed, boundary inclusive.
func ShouldShow(choice string, promptEnabled bool, lastShownAt time.Time, cooldownDays int, now time.Time) bool {
	if choice == config.ChoiceEnabled {
		return false
	}
	if !promptEnabled {
		return false
	}
	if lastShownAt.IsZero() {
		return true
	}
	return engine.DaysUntil(now, lastShownAt) >= cooldownDays
}
