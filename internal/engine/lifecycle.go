package engine

import (
	"time"

	"github.com/tartampluch/go-perks/internal/config"
)

// Tier classifies how much of the current cycle is left.
type Tier string

const (
	TierExpired Tier = "expired"
	TierUrgent  Tier = "urgent"
	TierWarning Tier = "warning"
	TierNormal  Tier = "normal"
	TierMonthly Tier = "monthly"
)

// Urgency is the display classification of a perk's remaining cycle time.
// Days is always populated. Months is populated only for long-horizon
// non-monthly perks (Tier == TierNormal with Months > 0).
type Urgency struct {
	Tier   Tier
	Days   int
	Months int
}

// ResetCountdown describes when a redeemed perk will become available again.
// Soon is set once the boundary has been reached; stale terminal states are
// expected to roll over on the next read rather than being an error.
type ResetCountdown struct {
	Soon bool
	Days int
}

// Normalize applies the self-healing rollover: a perk stored with a terminal
// or partial status whose cycle boundary has passed reads back as Available
// with the remaining balance cleared. The returned bool reports whether the
// stored record is stale and owes a persisted write-back on the next mutation.
//
// The check is idempotent: normalizing an already-normalized perk is a no-op,
// however many times it runs.
func Normalize(p Perk, now time.Time) (Perk, bool) {
	if p.Status != StatusRedeemed && p.Status != StatusPartiallyRedeemed {
		return p, false
	}

	anchor := p.CycleAnchor
	if anchor.IsZero() {
		// No anchor recorded for the terminal status. Without a cycle to pin
		// the redemption to, leave the stored state alone.
		return p, false
	}

	boundary, err := ExpiryDate(p.Period.Months(), anchor, anchor)
	if err != nil {
		return p, false
	}

	if now.Before(boundary) {
		return p, false
	}

	p.Status = StatusAvailable
	p.RemainingValue = 0
	return p, true
}

// ClassifyDays maps a whole-day countdown onto an urgency tier. The countdown
// may come from a boundary computed at an earlier read, which is the only way
// TierExpired is reachable: a freshly computed boundary is always future.
func ClassifyDays(period Period, d int) Urgency {
	switch {
	case d <= 0:
		return Urgency{Tier: TierExpired, Days: d}
	case d <= config.UrgentMaxDays:
		return Urgency{Tier: TierUrgent, Days: d}
	case d <= config.WarningMaxDays:
		return Urgency{Tier: TierWarning, Days: d}
	case d <= config.NormalMaxDays:
		return Urgency{Tier: TierNormal, Days: d}
	case period == Monthly:
		// A monthly perk more than a month out gets the generic label, no
		// countdown. Only reachable right after a cycle starts.
		return Urgency{Tier: TierMonthly, Days: d}
	default:
		return Urgency{Tier: TierNormal, Days: d, Months: d / config.DaysPerMonthApprox}
	}
}

// Classify returns the urgency tier for a perk that still has value to redeem,
// against a freshly computed current-cycle boundary. Callers should Normalize
// first.
func Classify(p Perk, now time.Time) (Urgency, error) {
	expiry, err := ExpiryDate(p.Period.Months(), p.CycleAnchor, now)
	if err != nil {
		return Urgency{}, err
	}
	return ClassifyDays(p.Period, DaysUntil(expiry, now)), nil
}

// ClassifyReset mirrors Classify for redeemed perks, labeled as time until the
// next reset instead of time until expiry. The countdown targets the boundary
// of the cycle the redemption happened in, so it genuinely reaches zero; past
// the boundary it reports Soon rather than an error, and the next normalized
// read flips the status.
func ClassifyReset(p Perk, now time.Time) (ResetCountdown, error) {
	anchor := p.CycleAnchor
	if anchor.IsZero() {
		anchor = now
	}
	boundary, err := ExpiryDate(p.Period.Months(), anchor, anchor)
	if err != nil {
		return ResetCountdown{}, err
	}
	d := DaysUntil(boundary, now)
	if d <= 0 {
		return ResetCountdown{Soon: true, Days: 0}, nil
	}
	return ResetCountdown{Days: d}, nil
}

// LogRedemption is the single canonical mutation entry point. Every trigger in
// the surrounding application (swipe, modal, long-press) must route here so
// behavior is identical regardless of gesture.
//
// A positive amount below the remaining balance yields PartiallyRedeemed; an
// amount covering the remaining balance (or more) yields Redeemed. Logging a
// non-positive amount, or logging against a perk with nothing left this cycle,
// fails with ValidationError and performs no mutation.
//
// The stale-rollover normalization is applied before validating, so a perk
// redeemed last cycle accepts a fresh redemption this cycle.
func LogRedemption(p Perk, amount int64, now time.Time) (Perk, error) {
	p, _ = Normalize(p, now)

	if amount <= 0 {
		return p, newValidationError(config.ErrAmountNotPos)
	}

	allowed := p.Remaining()
	if allowed <= 0 {
		return p, newValidationError(config.ErrAmountExceeds)
	}

	if amount < allowed {
		p.Status = StatusPartiallyRedeemed
		p.RemainingValue = allowed - amount
	} else {
		p.Status = StatusRedeemed
		p.RemainingValue = 0
	}
	p.CycleAnchor = now
	return p, nil
}

// MarkAvailable is the explicit undo from either redeemed state. The cycle
// anchor is left alone: undoing restores availability within the same cycle.
func MarkAvailable(p Perk) Perk {
	p.Status = StatusAvailable
	p.RemainingValue = 0
	return p
}
