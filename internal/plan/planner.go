// Package plan computes the set of reminders that should be pending right now.
// Everything in it is pure: "now" is an explicit argument, identities are
// deterministic, and replanning with unchanged inputs reproduces the same
// dedupe keys.
package plan

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/engine"
	"github.com/tartampluch/go-perks/internal/prefs"
)

// Candidate is one reminder that should currently be scheduled. DedupeKey is
// derived from the entity, reminder type and cycle, so the same logical
// reminder always reconciles onto itself no matter how often the plan is
// recomputed.
type Candidate struct {
	DedupeKey string
	Type      string
	EntityID  string
	CycleID   string
	FireAt    time.Time
	Title     string
	Body      string
}

// Planner turns an entity snapshot and the user's preferences into candidates.
// The Format hooks let the application inject localized strings without the
// planner knowing about translation bundles; each has a plain-English
// fallback.
type Planner struct {
	FormatExpiry  func(perkName string, days int, remaining string) (title, body string)
	FormatRenewal func(cardName string, days int) (title, body string)
	FormatDigest  func() (title, body string)
	FormatReset   func(perkName string) (title, body string)

	// ForceImmediate keeps candidates whose fire time is not strictly in the
	// future. It exists solely for test and debug tooling and must be set
	// explicitly; normal planning never backfills a missed reminder.
	ForceImmediate bool
}

// DedupeKey deterministically identifies one reminder per entity, type and
// cycle. Same construction as the calendar feed UIDs: salted hash, truncated
// hex, stable across restarts and preference changes.
func DedupeKey(entityID, reminderType, cycleID string) string {
	input := fmt.Sprintf(config.FormatHashInput, entityID, reminderType, cycleID, config.DedupeSalt)
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", sum[:config.DedupeHashLength])
}

// Plan computes every reminder that should be pending at "now" for the given
// snapshot, current cycle only. Candidates are returned in deterministic
// order.
func (pl *Planner) Plan(perks []engine.Perk, cards []engine.Card, p prefs.Preferences, now time.Time) []Candidate {
	var out []Candidate

	for _, perk := range perks {
		perk, _ = engine.Normalize(perk, now)

		if c, ok := pl.expiryCandidate(perk, p, now); ok {
			out = append(out, c)
		}
		if c, ok := pl.resetCandidate(perk, p, now); ok {
			out = append(out, c)
		}
	}

	for _, card := range cards {
		if c, ok := pl.renewalCandidate(card, p, now); ok {
			out = append(out, c)
		}
	}

	if c, ok := pl.digestCandidate(p, now); ok {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DedupeKey < out[j].DedupeKey })
	return out
}

// expiryCandidate plans the next upcoming expiry reminder for a perk that
// still has value to redeem. Offsets all target the same cycle boundary, so
// only the soonest-firing future offset is pending at any time; once it fires,
// the next replan picks the following one under the same dedupe key.
func (pl *Planner) expiryCandidate(perk engine.Perk, p prefs.Preferences, now time.Time) (Candidate, bool) {
	if perk.Status == engine.StatusRedeemed {
		return Candidate{}, false
	}
	if !p.ExpiryToggleFor(perk.Period) {
		return Candidate{}, false
	}

	expiry, err := engine.ExpiryDate(perk.Period.Months(), perk.CycleAnchor, now)
	if err != nil {
		return Candidate{}, false
	}

	fireAt, ok := pl.nextFire(expiry, p.ExpiryOffsets, now)
	if !ok {
		return Candidate{}, false
	}

	cycle := engine.CycleID(perk.Period.Months(), expiry)
	title, body := pl.expiryText(perk, engine.DaysUntil(expiry, now))

	return Candidate{
		DedupeKey: DedupeKey(perk.ID, config.ReminderPerkExpiry, cycle),
		Type:      config.ReminderPerkExpiry,
		EntityID:  perk.ID,
		CycleID:   cycle,
		FireAt:    fireAt,
		Title:     title,
		Body:      body,
	}, true
}

// resetCandidate plans the confirmation sent at the exact rollover instant of
// a redeemed perk's current cycle.
func (pl *Planner) resetCandidate(perk engine.Perk, p prefs.Preferences, now time.Time) (Candidate, bool) {
	if !p.ResetConfirmation || perk.Status != engine.StatusRedeemed {
		return Candidate{}, false
	}

	anchor := perk.CycleAnchor
	if anchor.IsZero() {
		return Candidate{}, false
	}
	boundary, err := engine.ExpiryDate(perk.Period.Months(), anchor, anchor)
	if err != nil {
		return Candidate{}, false
	}
	if !pl.isSchedulable(boundary, now) {
		return Candidate{}, false
	}

	cycle := engine.CycleID(perk.Period.Months(), boundary)
	title, body := pl.resetText(perk)

	return Candidate{
		DedupeKey: DedupeKey(perk.ID, config.ReminderResetConfirm, cycle),
		Type:      config.ReminderResetConfirm,
		EntityID:  perk.ID,
		CycleID:   cycle,
		FireAt:    boundary,
		Title:     title,
		Body:      body,
	}, true
}

// renewalCandidate plans the next upcoming renewal reminder before the card's
// anniversary. Cards without a user-supplied renewal date are skipped.
func (pl *Planner) renewalCandidate(card engine.Card, p prefs.Preferences, now time.Time) (Candidate, bool) {
	if !p.CardRenewal || !card.HasRenewal() {
		return Candidate{}, false
	}

	occurrence := nextAnniversary(card.RenewalDate, now)
	fireAt, ok := pl.nextFire(occurrence, p.RenewalOffsets, now)
	if !ok {
		return Candidate{}, false
	}

	cycle := fmt.Sprintf(config.FormatRenewalCycle, occurrence.Year())
	title, body := pl.renewalText(card, engine.DaysUntil(occurrence, now))

	return Candidate{
		DedupeKey: DedupeKey(card.ID, config.ReminderCardRenewal, cycle),
		Type:      config.ReminderCardRenewal,
		EntityID:  card.ID,
		CycleID:   cycle,
		FireAt:    fireAt,
		Title:     title,
		Body:      body,
	}, true
}

// digestCandidate plans the first-of-month digest at the next month boundary.
func (pl *Planner) digestCandidate(p prefs.Preferences, now time.Time) (Candidate, bool) {
	if !p.FirstOfMonthDigest {
		return Candidate{}, false
	}

	firstOfMonth, err := engine.ExpiryDate(engine.Monthly.Months(), now, now)
	if err != nil {
		return Candidate{}, false
	}

	cycle := engine.CycleID(engine.Monthly.Months(), firstOfMonth)
	title, body := pl.digestText()

	return Candidate{
		DedupeKey: DedupeKey(config.DigestEntityID, config.ReminderFirstOfMonth, cycle),
		Type:      config.ReminderFirstOfMonth,
		EntityID:  config.DigestEntityID,
		CycleID:   cycle,
		FireAt:    firstOfMonth,
		Title:     title,
		Body:      body,
	}, true
}

// nextFire picks the soonest schedulable fire time among the configured
// day offsets before the target date. Offsets whose moment has already passed
// are dropped, never fired late.
func (pl *Planner) nextFire(target time.Time, offsets []int, now time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, off := range offsets {
		fire := target.AddDate(0, 0, -off)
		if !pl.isSchedulable(fire, now) {
			continue
		}
		if !found || fire.Before(best) {
			best = fire
			found = true
		}
	}
	return best, found
}

func (pl *Planner) isSchedulable(fire, now time.Time) bool {
	return fire.After(now) || pl.ForceImmediate
}

// nextAnniversary projects a stored anniversary date onto its next occurrence
// at or after today. Feb 29 anniversaries normalize to Mar 1 outside leap
// years via time.Date.
func nextAnniversary(anniversary, now time.Time) time.Time {
	loc := now.Location()
	candidate := time.Date(now.Year(), anniversary.Month(), anniversary.Day(), 0, 0, 0, 0, loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if candidate.Before(todayStart) {
		candidate = time.Date(now.Year()+1, anniversary.Month(), anniversary.Day(), 0, 0, 0, 0, loc)
	}
	return candidate
}

func (pl *Planner) expiryText(perk engine.Perk, days int) (string, string) {
	name := perk.Name
	if name == "" {
		name = config.FallbackPerkName
	}
	if pl.FormatExpiry != nil {
		return pl.FormatExpiry(name, days, engine.FormatCents(perk.Remaining()))
	}
	return fmt.Sprintf(config.FallbackExpiryTitle, name),
		fmt.Sprintf(config.FallbackExpiryBody, name, days, engine.FormatCents(perk.Remaining()))
}

func (pl *Planner) renewalText(card engine.Card, days int) (string, string) {
	name := card.Name
	if name == "" {
		name = config.FallbackCardName
	}
	if pl.FormatRenewal != nil {
		return pl.FormatRenewal(name, days)
	}
	return fmt.Sprintf(config.FallbackRenewalTitle, name),
		fmt.Sprintf(config.FallbackRenewalBody, name, days)
}

func (pl *Planner) digestText() (string, string) {
	if pl.FormatDigest != nil {
		return pl.FormatDigest()
	}
	return config.FallbackDigestTitle, config.FallbackDigestBody
}

func (pl *Planner) resetText(perk engine.Perk) (string, string) {
	name := perk.Name
	if name == "" {
		name = config.FallbackPerkName
	}
	if pl.FormatReset != nil {
		return pl.FormatReset(name)
	}
	return fmt.Sprintf(config.FallbackResetTitle, name),
		fmt.Sprintf(config.FallbackResetBody, name)
}
