// Package app wires the pipeline together: catalog snapshot in, reminders
// reconciled and the feed republished, due reminders handed to the desktop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tartampluch/go-perks/internal/calendar"
	"github.com/tartampluch/go-perks/internal/catalog"
	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/engine"
	"github.com/tartampluch/go-perks/internal/i18n"
	"github.com/tartampluch/go-perks/internal/notify"
	"github.com/tartampluch/go-perks/internal/plan"
	"github.com/tartampluch/go-perks/internal/prefs"
	"github.com/tartampluch/go-perks/internal/server"
)

// Notifier displays one reminder to the user. The command layer injects the
// desktop notification call so this package stays headless and testable.
type Notifier func(title, body string)

// PerksApp owns the refresh and dispatch loops.
type PerksApp struct {
	Ctx         context.Context
	Clock       engine.Clock
	Store       prefs.KeyValueStore
	Delivery    *notify.MemoryDelivery
	Coordinator *notify.Coordinator
	Server      *server.FeedServer
	Translator  *i18n.Translator
	Notify      Notifier
	CatalogPath string

	configChan chan struct{}
}

// NewPerksApp constructs the application and wires dependencies.
func NewPerksApp(ctx context.Context, store prefs.KeyValueStore, srv *server.FeedServer, tr *i18n.Translator, notifier Notifier, catalogPath string) *PerksApp {
	delivery := notify.NewMemoryDelivery()
	return &PerksApp{
		Ctx:         ctx,
		Clock:       engine.RealClock{},
		Store:       store,
		Delivery:    delivery,
		Coordinator: notify.NewCoordinator(delivery),
		Server:      srv,
		Translator:  tr,
		Notify:      notifier,
		CatalogPath: catalogPath,
		configChan:  make(chan struct{}, config.ChannelBufferSize),
	}
}

// Run launches the HTTP server and blocks in the worker loop until the
// context is cancelled.
func (app *PerksApp) Run() {
	go func() {
		if err := app.Server.Start(app.Ctx); err != nil {
			slog.Error(config.ErrServerStartup,
				config.LogKeyError, err,
				config.LogKeyComponent, config.CompApp)

			if app.Notify != nil {
				app.Notify(config.TitleStartupError,
					fmt.Sprintf(config.MsgPortBusy, app.Server.Port))
			}
		}
	}()

	app.backgroundWorker()
}

// SettingsChanged signals the worker that preferences were edited, so the
// refresh interval and language take effect without waiting for the next tick.
func (app *PerksApp) SettingsChanged() {
	select {
	case app.configChan <- struct{}{}:
	default:
	}
}

// backgroundWorker manages the periodic refresh and dispatch schedule.
func (app *PerksApp) backgroundWorker() {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	app.refresh()

	currentDuration := app.refreshInterval()
	ticker := time.NewTicker(currentDuration)
	defer ticker.Stop()

	dispatchTicker := time.NewTicker(config.DefaultDispatchTick)
	defer dispatchTicker.Stop()

	log.Info(config.MsgWorkerStart, config.LogKeyInterval, currentDuration)

	for {
		select {
		case <-app.Ctx.Done():
			log.Info(config.MsgWorkerStop)
			return

		case <-app.configChan:
			app.applyLanguage()
			newDuration := app.refreshInterval()
			if newDuration != currentDuration {
				log.Info(config.MsgUpdateInterval,
					config.LogKeyOld, currentDuration,
					config.LogKeyNew, newDuration)
				currentDuration = newDuration
				ticker.Reset(currentDuration)
			}
			app.refresh()

		case <-ticker.C:
			app.refresh()

		case <-dispatchTicker.C:
			app.DispatchDue()
		}
	}
}

// refresh runs RefreshOnce with the current clock, logging failures instead
// of propagating them; the worker keeps running on a bad catalog read.
func (app *PerksApp) refresh() {
	if err := app.RefreshOnce(app.Clock.Now()); err != nil {
		slog.Error(config.MsgRefreshFailed,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyError, err)
	}
}

// RefreshOnce executes one pass of the pipeline: load the catalog, plan the
// reminders that should be pending at "now", reconcile the delivery store
// against that plan, and republish the feed.
func (app *PerksApp) RefreshOnce(now time.Time) error {
	start := time.Now()
	slog.Info(config.MsgRefreshStart, config.LogKeyComponent, config.CompApp)

	snap, err := catalog.Load(app.CatalogPath, now)
	if err != nil {
		return err
	}

	p := prefs.Load(app.Store)

	planner := &plan.Planner{
		FormatExpiry:  app.Translator.ExpiryText,
		FormatRenewal: app.Translator.RenewalText,
		FormatDigest:  app.Translator.DigestText,
		FormatReset:   app.Translator.ResetText,
	}
	candidates := planner.Plan(snap.Perks, snap.Cards, p, now)

	results := app.Coordinator.Reconcile(app.Ctx, candidates)
	failed := 0
	for _, r := range results {
		if r.Outcome == notify.OutcomeFailed {
			failed++
		}
	}

	gen := &calendar.Generator{
		Clock:             fixedClock{now},
		FormatPerkSummary: app.perkSummary,
		FormatCardSummary: app.cardSummary,
	}
	icsData, err := gen.Render(snap.Perks, snap.Cards)
	if err != nil {
		return err
	}

	app.Server.UpdateFeed(icsData)
	if err := app.Server.UpdateUpcoming(candidates); err != nil {
		return err
	}

	slog.Info(config.MsgRefreshDone,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyPerks, len(snap.Perks),
		config.LogKeyCards, len(snap.Cards),
		config.LogKeyCount, len(candidates),
		config.LogKeyFailed, failed,
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return nil
}

// DispatchDue pops every reminder whose fire time has passed and hands it to
// the notifier. Returns how many were displayed.
func (app *PerksApp) DispatchDue() int {
	due := app.Delivery.PopDue(app.Clock.Now())
	for _, pending := range due {
		if app.Notify != nil {
			app.Notify(pending.Payload.Title, pending.Payload.Body)
		}
		slog.Info(config.MsgReminderFired,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyKey, pending.DedupeKey,
			config.LogKeyTitle, pending.Payload.Title,
		)
	}
	return len(due)
}

// MaybePromptNotifications reports whether the notification-permission prompt
// may be shown now, and records the showing when it may. A prior "declined"
// disables the prompt for good; "later" re-asks after the cooldown window.
func (app *PerksApp) MaybePromptNotifications() bool {
	now := app.Clock.Now()
	choice := prefs.NotificationChoice(app.Store)
	promptEnabled := choice != config.ChoiceDeclined
	last := prefs.LastPromptShown(app.Store, config.FeatureNotifPrompt)

	if !plan.ShouldShow(choice, promptEnabled, last, config.CooldownDaysDefault, now) {
		slog.Debug(config.MsgPromptGated,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyFeature, config.FeatureNotifPrompt,
			config.LogKeyChoice, choice,
		)
		return false
	}

	prefs.MarkPromptShown(app.Store, config.FeatureNotifPrompt, now)
	slog.Info(config.MsgPromptEligible,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyFeature, config.FeatureNotifPrompt,
	)
	return true
}

// refreshInterval reads the configured interval, falling back to the default
// on absent or nonsensical values.
func (app *PerksApp) refreshInterval() time.Duration {
	minutes := config.DefaultRefreshMin
	if raw, err := app.Store.Get(config.PrefInterval); err == nil {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			minutes = v
		}
	}
	return time.Duration(minutes) * time.Minute
}

// applyLanguage switches the translator to the stored language preference.
func (app *PerksApp) applyLanguage() {
	if raw, err := app.Store.Get(config.PrefLanguage); err == nil && raw != "" {
		app.Translator.SetLanguage(raw)
	}
}

func (app *PerksApp) perkSummary(name string, _ string) string {
	return app.Translator.MsgData(config.TKeyExpiryTitle, map[string]any{"PerkName": name})
}

func (app *PerksApp) cardSummary(name string) string {
	return app.Translator.MsgData(config.TKeyRenewalTitle, map[string]any{"CardName": name})
}

// fixedClock pins the calendar generator to the refresh pass timestamp, so
// every artifact of one pass agrees on "now".
type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time {
	return c.at
}
