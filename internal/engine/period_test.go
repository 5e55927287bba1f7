package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-perks/internal/engine"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpiryDate_Monthly_FirstOfNextMonth(t *testing.T) {
	anchor := date(2025, 1, 10)

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"mid month", date(2025, 6, 15), date(2025, 7, 1)},
		{"last day of month", date(2025, 6, 30), date(2025, 7, 1)},
		{"exactly on boundary returns next", date(2025, 7, 1), date(2025, 8, 1)},
		{"december wraps to january", date(2025, 12, 20), date(2026, 1, 1)},
		{"february non leap", date(2025, 2, 28), date(2025, 3, 1)},
		{"february leap year", date(2024, 2, 29), date(2024, 3, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.ExpiryDate(1, anchor, tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			// Invariant: the monthly boundary is always the 1st of a month.
			assert.Equal(t, 1, got.Day())
		})
	}
}

func TestExpiryDate_CalendarEpochAlignment(t *testing.T) {
	// Quarterly/semi-annual/annual boundaries share a fixed calendar epoch
	// (Jan 1 of the anchor's year), so two cards added months apart still
	// align on the same boundary.
	now := date(2025, 5, 20)

	earlyAnchor := date(2025, 1, 3)
	lateAnchor := date(2025, 4, 28)

	for _, months := range []int{3, 6, 12} {
		a, err := engine.ExpiryDate(months, earlyAnchor, now)
		require.NoError(t, err)
		b, err := engine.ExpiryDate(months, lateAnchor, now)
		require.NoError(t, err)
		assert.Equal(t, a, b, "period %dm should align across anchors", months)
	}

	q, err := engine.ExpiryDate(3, earlyAnchor, now)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 7, 1), q)

	s, err := engine.ExpiryDate(6, earlyAnchor, now)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 7, 1), s)

	y, err := engine.ExpiryDate(12, earlyAnchor, now)
	require.NoError(t, err)
	assert.Equal(t, date(2026, 1, 1), y)
}

func TestExpiryDate_FutureYearAnchor(t *testing.T) {
	// An anchor stamped ahead of "now" must not push the boundary out to its
	// own year: the grid repeats from Jan 1 of any year, so the next boundary
	// after "now" is the answer.
	anchor := date(2025, 1, 10)

	cases := []struct {
		name   string
		months int
		now    time.Time
		want   time.Time
	}{
		{"monthly", 1, date(2024, 2, 29), date(2024, 3, 1)},
		{"quarterly", 3, date(2024, 2, 29), date(2024, 4, 1)},
		{"semi annual", 6, date(2024, 8, 15), date(2025, 1, 1)},
		{"annual", 12, date(2024, 2, 29), date(2025, 1, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.ExpiryDate(tc.months, anchor, tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExpiryDate_ExactQuarterBoundary(t *testing.T) {
	// Sitting exactly on a quarter boundary must yield the NEXT boundary,
	// never a zero-day countdown.
	got, err := engine.ExpiryDate(3, date(2025, 1, 1), date(2025, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, date(2025, 7, 1), got)
}

func TestExpiryDate_AlwaysStrictlyFuture(t *testing.T) {
	// Property from the period contract: for every supported period and any
	// "now", a fresh computation is strictly in the future.
	anchor := date(2024, 3, 15)
	nows := []time.Time{
		date(2024, 1, 1),
		date(2024, 2, 29),
		date(2024, 12, 31),
		date(2025, 1, 1),
		date(2025, 6, 30),
		time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC),
	}

	for _, months := range []int{1, 3, 6, 12} {
		for _, now := range nows {
			got, err := engine.ExpiryDate(months, anchor, now)
			require.NoError(t, err)
			assert.True(t, got.After(now),
				"period %dm at %s produced non-future boundary %s", months, now, got)
		}
	}
}

func TestExpiryDate_MalformedPeriod(t *testing.T) {
	for _, months := range []int{0, -1, 2, 5, 24} {
		_, err := engine.ExpiryDate(months, date(2025, 1, 1), date(2025, 6, 1))
		require.Error(t, err)

		var vErr *engine.ValidationError
		assert.ErrorAs(t, err, &vErr)
	}
}

func TestCycleID_StableAcrossReplans(t *testing.T) {
	anchor := date(2025, 1, 1)

	// Two reads within the same cycle name the same cycle.
	e1, err := engine.ExpiryDate(3, anchor, date(2025, 4, 2))
	require.NoError(t, err)
	e2, err := engine.ExpiryDate(3, anchor, date(2025, 6, 28))
	require.NoError(t, err)
	assert.Equal(t, engine.CycleID(3, e1), engine.CycleID(3, e2))

	// A read in the next cycle names a different one.
	e3, err := engine.ExpiryDate(3, anchor, date(2025, 7, 2))
	require.NoError(t, err)
	assert.NotEqual(t, engine.CycleID(3, e1), engine.CycleID(3, e3))

	// Periods never collide even when boundaries coincide.
	assert.NotEqual(t, engine.CycleID(3, e1), engine.CycleID(6, e1))
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, 0, engine.DaysUntil(date(2025, 6, 15), now))
	assert.Equal(t, 1, engine.DaysUntil(date(2025, 6, 16), now))
	assert.Equal(t, 16, engine.DaysUntil(date(2025, 7, 1), now))
	assert.Equal(t, -1, engine.DaysUntil(date(2025, 6, 14), now))

	// Time of day on either side must not change the whole-day count.
	lateTarget := time.Date(2025, 6, 16, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 1, engine.DaysUntil(lateTarget, now))
}
