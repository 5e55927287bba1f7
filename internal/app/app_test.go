package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-perks/internal/app"
	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/i18n"
	"github.com/tartampluch/go-perks/internal/plan"
	"github.com/tartampluch/go-perks/internal/prefs"
	"github.com/tartampluch/go-perks/internal/server"
)

// mutableClock lets a test move time forward between pipeline passes.
type mutableClock struct {
	T time.Time
}

func (c *mutableClock) Now() time.Time {
	return c.T
}

// fakeStore is an in-memory KeyValueStore.
type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (s *fakeStore) Get(key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", prefs.ErrNotFound
	}
	return v, nil
}

func (s *fakeStore) Set(key, value string) error {
	s.values[key] = value
	return nil
}

func (s *fakeStore) Remove(key string) error {
	delete(s.values, key)
	return nil
}

const catalogFixture = `cards:
  - id: gold
    name: Gold Card
    renewal_date: 2022-03-10
perks:
  - id: dining-credit
    card: gold
    name: Dining Credit
    value_cents: 1000
    period_months: 1
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestApp(t *testing.T, clock *mutableClock, catalogPath string) (*app.PerksApp, *fakeStore, *[]string) {
	t.Helper()
	store := newFakeStore()
	var titles []string
	notifier := func(title, body string) {
		titles = append(titles, title)
	}

	a := app.NewPerksApp(context.Background(), store, server.NewFeedServer("0"), i18n.New("en"), notifier, catalogPath)
	a.Clock = clock
	return a, store, &titles
}

func TestRefreshOnce_SchedulesPlannedReminders(t *testing.T) {
	// June 20: a monthly perk resets July 1, so the 7-day offset fires June 24.
	clock := &mutableClock{T: time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC)}
	a, _, _ := newTestApp(t, clock, writeCatalog(t, catalogFixture))

	require.NoError(t, a.RefreshOnce(clock.Now()))

	keys, err := a.Delivery.ListScheduled(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, keys, "The expiry reminder should be pending")

	// Nothing is due yet.
	assert.Zero(t, a.DispatchDue())
}

func TestRefreshOnce_ThenDispatchAfterFireTime(t *testing.T) {
	clock := &mutableClock{T: time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC)}
	a, _, titles := newTestApp(t, clock, writeCatalog(t, catalogFixture))

	require.NoError(t, a.RefreshOnce(clock.Now()))

	// Advance past the 7-day offset (June 24) and dispatch.
	clock.T = time.Date(2025, time.June, 24, 9, 0, 0, 0, time.UTC)
	fired := a.DispatchDue()

	require.Equal(t, 1, fired)
	require.Len(t, *titles, 1)
	assert.Contains(t, (*titles)[0], "Dining Credit")

	// A second dispatch finds nothing: pop is exactly-once.
	assert.Zero(t, a.DispatchDue())
}

func TestRefreshOnce_SecondPassIsIdempotent(t *testing.T) {
	clock := &mutableClock{T: time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC)}
	a, _, _ := newTestApp(t, clock, writeCatalog(t, catalogFixture))

	require.NoError(t, a.RefreshOnce(clock.Now()))
	first, err := a.Delivery.ListScheduled(context.Background())
	require.NoError(t, err)

	require.NoError(t, a.RefreshOnce(clock.Now()))
	second, err := a.Delivery.ListScheduled(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second, "Re-running the pipeline must not duplicate reminders")
}

func TestRefreshOnce_DisablingCategoryCancelsPending(t *testing.T) {
	clock := &mutableClock{T: time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC)}
	a, store, _ := newTestApp(t, clock, writeCatalog(t, catalogFixture))
	expiryKey := plan.DedupeKey("dining-credit", config.ReminderPerkExpiry, "1m-2025-07")

	require.NoError(t, a.RefreshOnce(clock.Now()))
	keys, err := a.Delivery.ListScheduled(context.Background())
	require.NoError(t, err)
	require.Contains(t, keys, expiryKey)

	// User switches monthly expiry reminders off.
	p := prefs.Load(store)
	p.MonthlyExpiry = false
	prefs.Save(store, p)

	require.NoError(t, a.RefreshOnce(clock.Now()))
	keys, err = a.Delivery.ListScheduled(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, keys, expiryKey, "Disabled category reminders must be withdrawn")
}

func TestRefreshOnce_MissingCatalogFails(t *testing.T) {
	clock := &mutableClock{T: time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC)}
	a, _, _ := newTestApp(t, clock, filepath.Join(t.TempDir(), "absent.yaml"))

	err := a.RefreshOnce(clock.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrCatalogOpen)
}

func TestMaybePromptNotifications_CooldownCycle(t *testing.T) {
	clock := &mutableClock{T: time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)}
	a, store, _ := newTestApp(t, clock, writeCatalog(t, catalogFixture))

	// Never shown: eligible, and the showing is recorded.
	assert.True(t, a.MaybePromptNotifications())

	// Immediately after: gated by the cooldown.
	assert.False(t, a.MaybePromptNotifications())

	// 29 days later: still gated.
	clock.T = time.Date(2025, time.June, 30, 9, 0, 0, 0, time.UTC)
	assert.False(t, a.MaybePromptNotifications())

	// 30 days later: eligible again.
	clock.T = time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	assert.True(t, a.MaybePromptNotifications())

	// A recorded decline disables the prompt regardless of elapsed time.
	prefs.SetNotificationChoice(store, config.ChoiceDeclined)
	clock.T = time.Date(2026, time.July, 1, 9, 0, 0, 0, time.UTC)
	assert.False(t, a.MaybePromptNotifications())

	// As does an affirmative choice.
	prefs.SetNotificationChoice(store, config.ChoiceEnabled)
	assert.False(t, a.MaybePromptNotifications())
}

func TestSettingsChanged_NeverBlocks(t *testing.T) {
	clock := &mutableClock{T: time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)}
	a, _, _ := newTestApp(t, clock, writeCatalog(t, catalogFixture))

	// No worker is draining the channel; repeated signals must not deadlock.
	for i := 0; i < 5; i++ {
		a.SettingsChanged()
	}
}
