package engine

import (
	"fmt"
	"time"

	"github.com/tartampluch/go-perks/internal/config"
)

// Period is the recurrence length of a perk's benefit cycle, in months.
type Period int

// Supported benefit cycle lengths.
const (
	Monthly    Period = 1
	Quarterly  Period = 3
	SemiAnnual Period = 6
	Annual     Period = 12
)

// Months returns the period length as a plain month count.
func (p Period) Months() int {
	return int(p)
}

// Valid reports whether the period is one of the supported cycle lengths.
func (p Period) Valid() bool {
	switch p {
	case Monthly, Quarterly, SemiAnnual, Annual:
		return true
	}
	return false
}

// Status is the redemption state of a perk within its current cycle.
type Status string

const (
	StatusAvailable         Status = "available"
	StatusPartiallyRedeemed Status = "partially_redeemed"
	StatusRedeemed          Status = "redeemed"
)

// Perk is a recurring credit-card benefit with a monetary value and a reset
// period. Amounts are integer cents to avoid float rounding in redemption math.
type Perk struct {
	ID     string
	Name   string
	CardID string

	// Value is the full benefit amount per cycle, in cents.
	Value int64

	Period Period
	Status Status

	// RemainingValue is the unredeemed balance in cents. It is meaningful only
	// while Status is StatusPartiallyRedeemed and is zero otherwise.
	RemainingValue int64

	// CycleAnchor is the date basis for period boundaries. Mutations stamp it
	// with the mutation time so rollover can tell which cycle a terminal
	// status belongs to.
	CycleAnchor time.Time
}

// Remaining returns the amount still redeemable this cycle, in cents.
func (p Perk) Remaining() int64 {
	if p.Status == StatusPartiallyRedeemed {
		return p.RemainingValue
	}
	if p.Status == StatusRedeemed {
		return 0
	}
	return p.Value
}

// Card is a credit card owning a set of perks. RenewalDate is the user-supplied
// anniversary date; the zero time means the user never provided one.
type Card struct {
	ID          string
	Name        string
	RenewalDate time.Time
}

// HasRenewal reports whether a renewal anniversary is known for the card.
func (c Card) HasRenewal() bool {
	return !c.RenewalDate.IsZero()
}

// ValidationError rejects a single operation without mutating anything.
// It covers non-positive or over-maximum redemption amounts and malformed
// period values.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func newValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// FormatCents renders an amount of cents as a display currency string.
func FormatCents(cents int64) string {
	return fmt.Sprintf(config.FormatCurrencyCents, cents/100, cents%100)
}
