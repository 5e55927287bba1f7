// Package prefs models user notification preferences on top of a small
// key-value collaborator. The engine never owns durable storage; it is handed
// this store and computes with whatever it returns.
package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/engine"
)

// ErrNotFound reports an absent key, as opposed to a store failure.
var ErrNotFound = errors.New("preference not found")

// KeyValueStore is the persistence collaborator for preference blobs and
// cooldown records. Implementations must distinguish an absent key
// (ErrNotFound) from a read failure: failures degrade to documented defaults,
// absence means "never configured".
type KeyValueStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Preferences is the full set of reminder toggles and day-offset lists.
// Every toggle defaults to enabled; a store failure falls back to the same
// default rather than silently disabling reminders.
type Preferences struct {
	MonthlyExpiry      bool
	QuarterlyExpiry    bool
	SemiAnnualExpiry   bool
	AnnualExpiry       bool
	CardRenewal        bool
	FirstOfMonthDigest bool
	ResetConfirmation  bool

	// ExpiryOffsets are day offsets before a perk's cycle boundary.
	ExpiryOffsets []int

	// RenewalOffsets are day offsets before a card's renewal anniversary.
	RenewalOffsets []int
}

// Defaults returns the documented default preference set: everything enabled,
// standard offset ladders.
func Defaults() Preferences {
	return Preferences{
		MonthlyExpiry:      config.DefaultEnabled,
		QuarterlyExpiry:    config.DefaultEnabled,
		SemiAnnualExpiry:   config.DefaultEnabled,
		AnnualExpiry:       config.DefaultEnabled,
		CardRenewal:        config.DefaultEnabled,
		FirstOfMonthDigest: config.DefaultEnabled,
		ResetConfirmation:  config.DefaultEnabled,
		ExpiryOffsets:      append([]int(nil), config.DefaultExpiryOffsets...),
		RenewalOffsets:     append([]int(nil), config.DefaultRenewalOffsets...),
	}
}

// ExpiryToggleFor returns whether expiry reminders are enabled for perks of
// the given period.
func (p Preferences) ExpiryToggleFor(period engine.Period) bool {
	switch period {
	case engine.Monthly:
		return p.MonthlyExpiry
	case engine.Quarterly:
		return p.QuarterlyExpiry
	case engine.SemiAnnual:
		return p.SemiAnnualExpiry
	case engine.Annual:
		return p.AnnualExpiry
	}
	return false
}

// Load reads the preference set from the store. Absent keys take defaults;
// read failures are logged and take defaults too, per the persistence error
// policy. Load never fails.
func Load(store KeyValueStore) Preferences {
	p := Defaults()

	p.MonthlyExpiry = loadBool(store, config.PrefMonthlyExpiry)
	p.QuarterlyExpiry = loadBool(store, config.PrefQuarterlyExpiry)
	p.SemiAnnualExpiry = loadBool(store, config.PrefSemiAnnualExpiry)
	p.AnnualExpiry = loadBool(store, config.PrefAnnualExpiry)
	p.CardRenewal = loadBool(store, config.PrefCardRenewal)
	p.FirstOfMonthDigest = loadBool(store, config.PrefMonthlyDigest)
	p.ResetConfirmation = loadBool(store, config.PrefResetConfirm)

	if offsets, ok := loadOffsets(store, config.PrefExpiryOffsets); ok {
		p.ExpiryOffsets = offsets
	}
	if offsets, ok := loadOffsets(store, config.PrefRenewalOffsets); ok {
		p.RenewalOffsets = offsets
	}
	return p
}

// Save writes the preference set back to the store. Write failures are logged
// per key and do not abort the rest of the batch.
func Save(store KeyValueStore, p Preferences) {
	saveBool(store, config.PrefMonthlyExpiry, p.MonthlyExpiry)
	saveBool(store, config.PrefQuarterlyExpiry, p.QuarterlyExpiry)
	saveBool(store, config.PrefSemiAnnualExpiry, p.SemiAnnualExpiry)
	saveBool(store, config.PrefAnnualExpiry, p.AnnualExpiry)
	saveBool(store, config.PrefCardRenewal, p.CardRenewal)
	saveBool(store, config.PrefMonthlyDigest, p.FirstOfMonthDigest)
	saveBool(store, config.PrefResetConfirm, p.ResetConfirmation)

	saveString(store, config.PrefExpiryOffsets, joinOffsets(p.ExpiryOffsets))
	saveString(store, config.PrefRenewalOffsets, joinOffsets(p.RenewalOffsets))
}

// NotificationChoice returns the recorded permission decision for the
// notification prompt (ChoiceUnset when never answered).
func NotificationChoice(store KeyValueStore) string {
	v, err := store.Get(config.PrefNotifChoice)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logReadFailure(config.PrefNotifChoice, err)
		}
		return config.ChoiceUnset
	}
	return v
}

// SetNotificationChoice records the user's permission decision.
func SetNotificationChoice(store KeyValueStore, choice string) {
	saveString(store, config.PrefNotifChoice, choice)
}

// LastPromptShown returns when the named recurring prompt was last displayed.
// The zero time means never. This is the CooldownRecord read side; the gate
// itself lives in the plan package and holds no state.
func LastPromptShown(store KeyValueStore, feature string) time.Time {
	key := config.PrefPromptPrefix + feature
	v, err := store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logReadFailure(key, err)
		}
		return time.Time{}
	}
	ts, parseErr := time.Parse(time.RFC3339, v)
	if parseErr != nil {
		logReadFailure(key, parseErr)
		return time.Time{}
	}
	return ts
}

// MarkPromptShown records the display time for the named recurring prompt.
func MarkPromptShown(store KeyValueStore, feature string, shownAt time.Time) {
	saveString(store, config.PrefPromptPrefix+feature, shownAt.Format(time.RFC3339))
}

func loadBool(store KeyValueStore, key string) bool {
	v, err := store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logReadFailure(key, err)
		}
		return config.DefaultEnabled
	}
	b, parseErr := strconv.ParseBool(v)
	if parseErr != nil {
		logReadFailure(key, parseErr)
		return config.DefaultEnabled
	}
	return b
}

func loadOffsets(store KeyValueStore, key string) ([]int, bool) {
	v, err := store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logReadFailure(key, err)
		}
		return nil, false
	}

	var offsets []int
	for _, part := range strings.Split(v, config.OffsetSeparator) {
		n, parseErr := strconv.Atoi(strings.TrimSpace(part))
		if parseErr != nil || n <= 0 {
			if parseErr == nil {
				parseErr = fmt.Errorf("%s: %q", config.ErrOffsetNotPos, part)
			}
			logReadFailure(key, parseErr)
			return nil, false
		}
		offsets = append(offsets, n)
	}
	return offsets, len(offsets) > 0
}

func joinOffsets(offsets []int) string {
	parts := make([]string, len(offsets))
	for i, n := range offsets {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, config.OffsetSeparator)
}

func saveBool(store KeyValueStore, key string, v bool) {
	saveString(store, key, strconv.FormatBool(v))
}

func saveString(store KeyValueStore, key, v string) {
	if err := store.Set(key, v); err != nil {
		slog.Warn(config.ErrPrefsRead,
			config.LogKeyComponent, config.CompPrefs,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
	}
}

func logReadFailure(key string, err error) {
	slog.Warn(config.ErrPrefsRead,
		config.LogKeyComponent, config.CompPrefs,
		config.LogKeyKey, key,
		config.LogKeyError, err,
	)
}
