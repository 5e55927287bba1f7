package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/notify"
	"github.com/tartampluch/go-perks/internal/plan"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockDelivery simulates the notification collaborator using `testify/mock`.
type MockDelivery struct {
	mock.Mock
}

func (m *MockDelivery) Schedule(ctx context.Context, key string, fireAt time.Time, payload []byte) (string, error) {
	args := m.Called(ctx, key, fireAt, payload)
	return args.String(0), args.Error(1)
}

func (m *MockDelivery) Cancel(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockDelivery) ListScheduled(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if keys := args.Get(0); keys != nil {
		return keys.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func candidate(key, entity string, fireAt time.Time) plan.Candidate {
	return plan.Candidate{
		DedupeKey: key,
		Type:      config.ReminderPerkExpiry,
		EntityID:  entity,
		CycleID:   "1m-2025-07",
		FireAt:    fireAt,
		Title:     "Perk expiring",
		Body:      "Redeem before the 1st",
	}
}

func outcomeByKey(results []notify.Result) map[string]notify.Outcome {
	out := make(map[string]notify.Outcome, len(results))
	for _, r := range results {
		out[r.Key] = r.Outcome
	}
	return out
}

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestReconcile_SubmitsCancelsAndLeavesUntouched(t *testing.T) {
	fireAt := time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)

	md := new(MockDelivery)
	md.On("ListScheduled", mock.Anything).Return([]string{"keep", "stale"}, nil)
	md.On("Schedule", mock.Anything, "new", fireAt, mock.Anything).Return("41", nil)
	md.On("Cancel", mock.Anything, "stale").Return(nil)

	c := notify.NewCoordinator(md)
	results := c.Reconcile(context.Background(), []plan.Candidate{
		candidate("keep", "perk-a", fireAt),
		candidate("new", "perk-b", fireAt),
	})

	require.Len(t, results, 3)
	outcomes := outcomeByKey(results)
	assert.Equal(t, notify.OutcomeUnchanged, outcomes["keep"])
	assert.Equal(t, notify.OutcomeScheduled, outcomes["new"])
	assert.Equal(t, notify.OutcomeCancelled, outcomes["stale"])

	// "keep" must not be re-registered: that would duplicate a user-visible
	// notification.
	md.AssertNotCalled(t, "Schedule", mock.Anything, "keep", mock.Anything, mock.Anything)
	md.AssertExpectations(t)
}

func TestReconcile_SecondPassIsIdempotent(t *testing.T) {
	fireAt := time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// Real in-memory store: reconcile twice with the same plan; the second
	// pass schedules nothing.
	store := notify.NewMemoryDelivery()
	c := notify.NewCoordinator(store)
	cands := []plan.Candidate{
		candidate("k1", "perk-a", fireAt),
		candidate("k2", "perk-b", fireAt),
	}

	first := c.Reconcile(ctx, cands)
	for _, r := range first {
		assert.Equal(t, notify.OutcomeScheduled, r.Outcome)
	}

	second := c.Reconcile(ctx, cands)
	for _, r := range second {
		assert.Equal(t, notify.OutcomeUnchanged, r.Outcome)
	}
}

func TestReconcile_PartialFailureDoesNotAbortBatch(t *testing.T) {
	fireAt := time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)
	rejection := errors.New("quota exceeded")

	md := new(MockDelivery)
	md.On("ListScheduled", mock.Anything).Return([]string{"stale-ok", "stale-bad"}, nil)
	md.On("Schedule", mock.Anything, "good", fireAt, mock.Anything).Return("7", nil)
	md.On("Schedule", mock.Anything, "bad", fireAt, mock.Anything).Return("", rejection)
	md.On("Cancel", mock.Anything, "stale-ok").Return(nil)
	md.On("Cancel", mock.Anything, "stale-bad").Return(rejection)

	c := notify.NewCoordinator(md)
	results := c.Reconcile(context.Background(), []plan.Candidate{
		candidate("good", "perk-a", fireAt),
		candidate("bad", "perk-b", fireAt),
	})

	require.Len(t, results, 4)
	outcomes := outcomeByKey(results)
	assert.Equal(t, notify.OutcomeScheduled, outcomes["good"])
	assert.Equal(t, notify.OutcomeFailed, outcomes["bad"])
	assert.Equal(t, notify.OutcomeCancelled, outcomes["stale-ok"])
	assert.Equal(t, notify.OutcomeFailed, outcomes["stale-bad"])

	for _, r := range results {
		if r.Outcome == notify.OutcomeFailed {
			assert.ErrorIs(t, r.Err, rejection)
		} else {
			assert.NoError(t, r.Err)
		}
	}
}

func TestReconcile_ListFailureFailsWholePlanSafely(t *testing.T) {
	listErr := errors.New("store unreachable")

	md := new(MockDelivery)
	md.On("ListScheduled", mock.Anything).Return(nil, listErr)

	c := notify.NewCoordinator(md)
	results := c.Reconcile(context.Background(), []plan.Candidate{
		candidate("k1", "perk-a", time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)),
	})

	require.Len(t, results, 1)
	assert.Equal(t, notify.OutcomeFailed, results[0].Outcome)
	assert.ErrorIs(t, results[0].Err, listErr)

	// Nothing is blindly submitted or cancelled without the pending set.
	md.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	md.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestReconcile_DisabledCategoryCancelsItsKeys(t *testing.T) {
	// Preference turned off between passes: the previously scheduled key is
	// absent from the new plan and gets cancelled.
	ctx := context.Background()
	fireAt := time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)

	store := notify.NewMemoryDelivery()
	c := notify.NewCoordinator(store)

	c.Reconcile(ctx, []plan.Candidate{candidate("k1", "perk-a", fireAt)})

	results := c.Reconcile(ctx, nil)
	require.Len(t, results, 1)
	assert.Equal(t, notify.OutcomeCancelled, results[0].Outcome)

	keys, err := store.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
