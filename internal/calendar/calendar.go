// Package calendar renders the upcoming perk and renewal schedule as an
// iCalendar feed, so any calendar client subscribed to the local server shows
// the same boundaries the reminder engine plans against.
package calendar

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/engine"
)

// Generator converts an entity snapshot into ICS bytes.
type Generator struct {
	Clock engine.Clock // Interface for time mocking.

	// FormatPerkSummary and FormatCardSummary let the application inject
	// localized event titles; nil falls back to plain English.
	FormatPerkSummary func(name string, remaining string) string
	FormatCardSummary func(name string) string
}

// Render produces the feed for the given snapshot. Perks contribute an
// all-day event on their current cycle boundary, cards with a known renewal
// date contribute one on the next anniversary; every event carries a DISPLAY
// alarm one day ahead. An empty snapshot yields the minimal valid stub
// calendar so feed clients never see an invalid body.
func (g *Generator) Render(perks []engine.Perk, cards []engine.Card) ([]byte, error) {
	now := g.Clock.Now()

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Stamp in UTC; event dates themselves stay calendar-local because a
	// perk resets on the user's local first-of-month, not a UTC instant.
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	count := 0
	for _, perk := range perks {
		perk, _ = engine.Normalize(perk, now)
		event, err := g.perkEvent(perk, now)
		if err != nil {
			slog.Warn(config.ErrICalEncode,
				config.LogKeyComponent, config.CompCalendar,
				config.LogKeyPerkID, perk.ID,
				config.LogKeyError, err,
			)
			continue
		}
		event.Props.Set(dtStampProp)
		cal.Children = append(cal.Children, event.Component)
		count++
	}

	for _, card := range cards {
		if !card.HasRenewal() {
			continue
		}
		event := g.cardEvent(card, now)
		event.Props.Set(dtStampProp)
		cal.Children = append(cal.Children, event.Component)
		count++
	}

	if len(cal.Children) == 0 {
		g.logSuccess(0)
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	g.logSuccess(count)
	return buf.Bytes(), nil
}

func (g *Generator) perkEvent(perk engine.Perk, now time.Time) (*ical.Event, error) {
	expiry, err := engine.ExpiryDate(perk.Period.Months(), perk.CycleAnchor, now)
	if err != nil {
		return nil, err
	}

	cycle := engine.CycleID(perk.Period.Months(), expiry)
	remaining := engine.FormatCents(perk.Remaining())

	summary := fmt.Sprintf(config.FallbackExpiryTitle, perk.Name)
	if g.FormatPerkSummary != nil {
		summary = g.FormatPerkSummary(perk.Name, remaining)
	}

	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, eventUID(perk.ID, cycle))
	event.Props.SetText(config.PropSummary, summary)

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(expiry)
	event.Props.Set(dtStartProp)

	addAlarm(event, config.ICalTriggerDayBefore, summary)
	return event, nil
}

func (g *Generator) cardEvent(card engine.Card, now time.Time) *ical.Event {
	loc := now.Location()
	occurrence := time.Date(now.Year(), card.RenewalDate.Month(), card.RenewalDate.Day(), 0, 0, 0, 0, loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if occurrence.Before(todayStart) {
		occurrence = time.Date(now.Year()+1, card.RenewalDate.Month(), card.RenewalDate.Day(), 0, 0, 0, 0, loc)
	}

	summary := fmt.Sprintf(config.FallbackRenewalTitle, card.Name)
	if g.FormatCardSummary != nil {
		summary = g.FormatCardSummary(card.Name)
	}

	event := ical.NewEvent()
	cycle := fmt.Sprintf(config.FormatRenewalCycle, occurrence.Year())
	event.Props.SetText(config.PropUID, eventUID(card.ID, cycle))
	event.Props.SetText(config.PropSummary, summary)

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(occurrence)
	event.Props.Set(dtStartProp)

	addAlarm(event, config.ICalTriggerDayBefore, summary)
	return event
}

// eventUID derives a stable identifier so feed refreshes update events in
// place instead of duplicating them.
func eventUID(entityID, cycle string) string {
	input := fmt.Sprintf(config.FormatHashInput, entityID, config.ICalDomain, cycle, config.DedupeSalt)
	hash := sha256.Sum256([]byte(input))
	base := fmt.Sprintf("%x", hash[:config.DedupeHashLength])
	return fmt.Sprintf(config.FormatUID, base, config.ICalDomain)
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}

func (g *Generator) logSuccess(events int) {
	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompCalendar,
		config.LogKeyCount, events,
	)
}
