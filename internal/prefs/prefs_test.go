package prefs_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/engine"
	"github.com/tartampluch/go-perks/internal/prefs"
)

// fakeStore is an in-memory KeyValueStore with injectable failures.
type fakeStore struct {
	values  map[string]string
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (s *fakeStore) Get(key string) (string, error) {
	if s.failAll {
		return "", errors.New("backing store unavailable")
	}
	v, ok := s.values[key]
	if !ok {
		return "", prefs.ErrNotFound
	}
	return v, nil
}

func (s *fakeStore) Set(key, value string) error {
	if s.failAll {
		return errors.New("backing store unavailable")
	}
	s.values[key] = value
	return nil
}

func (s *fakeStore) Remove(key string) error {
	delete(s.values, key)
	return nil
}

func TestLoad_EmptyStoreTakesDefaults(t *testing.T) {
	p := prefs.Load(newFakeStore())

	assert.True(t, p.MonthlyExpiry)
	assert.True(t, p.AnnualExpiry)
	assert.True(t, p.CardRenewal)
	assert.True(t, p.FirstOfMonthDigest)
	assert.True(t, p.ResetConfirmation)
	assert.Equal(t, config.DefaultExpiryOffsets, p.ExpiryOffsets)
	assert.Equal(t, config.DefaultRenewalOffsets, p.RenewalOffsets)
}

func TestLoad_FailingStoreFallsBackEnabled(t *testing.T) {
	// Persistence failure must degrade to "enabled", never silently off.
	store := newFakeStore()
	store.failAll = true

	p := prefs.Load(store)

	assert.True(t, p.QuarterlyExpiry)
	assert.True(t, p.CardRenewal)
	assert.Equal(t, config.DefaultExpiryOffsets, p.ExpiryOffsets)
}

func TestLoad_ExplicitOptOutSurvives(t *testing.T) {
	store := newFakeStore()
	store.values[config.PrefQuarterlyExpiry] = "false"
	store.values[config.PrefCardRenewal] = "false"

	p := prefs.Load(store)

	assert.False(t, p.QuarterlyExpiry)
	assert.False(t, p.CardRenewal)
	assert.True(t, p.MonthlyExpiry, "untouched toggles stay enabled")
}

func TestLoad_OffsetOverrides(t *testing.T) {
	store := newFakeStore()
	store.values[config.PrefExpiryOffsets] = "14, 2"
	store.values[config.PrefRenewalOffsets] = "60,14"

	p := prefs.Load(store)

	assert.Equal(t, []int{14, 2}, p.ExpiryOffsets)
	assert.Equal(t, []int{60, 14}, p.RenewalOffsets)
}

func TestLoad_MalformedOffsetsFallBack(t *testing.T) {
	store := newFakeStore()
	store.values[config.PrefExpiryOffsets] = "7,banana,1"
	store.values[config.PrefRenewalOffsets] = "-3"

	p := prefs.Load(store)

	assert.Equal(t, config.DefaultExpiryOffsets, p.ExpiryOffsets)
	assert.Equal(t, config.DefaultRenewalOffsets, p.RenewalOffsets)
}

func TestLoad_NonPositiveOffsetLogsReason(t *testing.T) {
	// A rejected offset list must say why it was discarded; "0" fails the
	// positivity rule, not integer parsing, and the warning still needs a
	// non-empty error value.
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	store := newFakeStore()
	store.values[config.PrefExpiryOffsets] = "7,0"

	p := prefs.Load(store)

	assert.Equal(t, config.DefaultExpiryOffsets, p.ExpiryOffsets)
	assert.Contains(t, buf.String(), config.ErrOffsetNotPos)
	assert.Contains(t, buf.String(), config.PrefExpiryOffsets)
}

func TestSaveThenLoad_KeepsOptOuts(t *testing.T) {
	store := newFakeStore()

	p := prefs.Defaults()
	p.SemiAnnualExpiry = false
	p.FirstOfMonthDigest = false
	p.ExpiryOffsets = []int{5, 1}
	prefs.Save(store, p)

	got := prefs.Load(store)
	assert.False(t, got.SemiAnnualExpiry)
	assert.False(t, got.FirstOfMonthDigest)
	assert.True(t, got.AnnualExpiry)
	assert.Equal(t, []int{5, 1}, got.ExpiryOffsets)
}

func TestExpiryToggleFor(t *testing.T) {
	p := prefs.Defaults()
	p.QuarterlyExpiry = false

	assert.True(t, p.ExpiryToggleFor(engine.Monthly))
	assert.False(t, p.ExpiryToggleFor(engine.Quarterly))
	assert.True(t, p.ExpiryToggleFor(engine.SemiAnnual))
	assert.False(t, p.ExpiryToggleFor(engine.Period(7)), "unknown period never fires")
}

func TestPromptRecord_RoundTrip(t *testing.T) {
	store := newFakeStore()

	assert.True(t, prefs.LastPromptShown(store, "notif_permission").IsZero())

	shown := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	prefs.MarkPromptShown(store, "notif_permission", shown)

	got := prefs.LastPromptShown(store, "notif_permission")
	assert.True(t, got.Equal(shown))

	// Records are keyed per feature, not one bespoke flag per prompt.
	assert.True(t, prefs.LastPromptShown(store, "other_prompt").IsZero())
}

func TestNotificationChoice(t *testing.T) {
	store := newFakeStore()

	assert.Equal(t, config.ChoiceUnset, prefs.NotificationChoice(store))

	prefs.SetNotificationChoice(store, config.ChoiceDeclined)
	assert.Equal(t, config.ChoiceDeclined, prefs.NotificationChoice(store))

	store.failAll = true
	assert.Equal(t, config.ChoiceUnset, prefs.NotificationChoice(store),
		"store failure reads as unset, not as a crash")
}
