// Package catalog loads the read-only entity snapshot (cards and their perks)
// handed to the engine. The file is owned by the surrounding application; the
// engine never writes it and never polls it.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/engine"
	"gopkg.in/yaml.v3"
)

// Snapshot is one point-in-time view of the user's cards and perks.
type Snapshot struct {
	Perks []engine.Perk
	Cards []engine.Card
}

type fileCard struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	RenewalDate string `yaml:"renewal_date,omitempty"`
}

type filePerk struct {
	ID             string `yaml:"id"`
	Card           string `yaml:"card"`
	Name           string `yaml:"name"`
	ValueCents     int64  `yaml:"value_cents"`
	PeriodMonths   int    `yaml:"period_months"`
	Status         string `yaml:"status,omitempty"`
	RemainingCents int64  `yaml:"remaining_cents,omitempty"`
	CycleAnchor    string `yaml:"cycle_anchor,omitempty"`
}

type fileCatalog struct {
	Cards []fileCard `yaml:"cards"`
	Perks []filePerk `yaml:"perks"`
}

// Load reads and validates a catalog file. Perks referencing unknown cards,
// duplicate ids and malformed periods are rejected outright: a half-loaded
// snapshot would plan reminders for entities that do not exist.
func Load(path string, now time.Time) (Snapshot, error) {
	if path == "" {
		return Snapshot{}, errors.New(config.ErrCatalogPathReq)
	}
	if ext := filepath.Ext(path); ext != config.ExtYAML && ext != config.ExtYML {
		return Snapshot{}, fmt.Errorf("%s: %q", config.ErrCatalogExt, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", config.ErrCatalogOpen, err)
	}
	return Parse(raw, now)
}

// Parse decodes a catalog document. Exposed separately so tests and future
// sources (stdin, embedded fixtures) can bypass the filesystem.
func Parse(raw []byte, now time.Time) (Snapshot, error) {
	var doc fileCatalog
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", config.ErrCatalogParse, err)
	}

	snap := Snapshot{}
	cardIDs := make(map[string]bool, len(doc.Cards))

	for _, c := range doc.Cards {
		if cardIDs[c.ID] {
			return Snapshot{}, fmt.Errorf("%s: %q", config.ErrDuplicateCardID, c.ID)
		}
		cardIDs[c.ID] = true

		card := engine.Card{ID: c.ID, Name: c.Name}
		if c.RenewalDate != "" {
			d, err := time.Parse(config.DateFormatFullDash, c.RenewalDate)
			if err != nil {
				return Snapshot{}, fmt.Errorf("%s: card %q: %w", config.ErrCatalogParse, c.ID, err)
			}
			card.RenewalDate = d
		}
		snap.Cards = append(snap.Cards, card)
	}

	perkIDs := make(map[string]bool, len(doc.Perks))
	for _, p := range doc.Perks {
		if perkIDs[p.ID] {
			return Snapshot{}, fmt.Errorf("%s: %q", config.ErrDuplicatePerkID, p.ID)
		}
		perkIDs[p.ID] = true
		if !cardIDs[p.Card] {
			return Snapshot{}, fmt.Errorf("%s: perk %q -> card %q", config.ErrUnknownCardRef, p.ID, p.Card)
		}
		if !engine.Period(p.PeriodMonths).Valid() {
			return Snapshot{}, fmt.Errorf("%s: perk %q", config.ErrPeriodInvalid, p.ID)
		}

		perk := engine.Perk{
			ID:     p.ID,
			Name:   p.Name,
			CardID: p.Card,
			Value:  p.ValueCents,
			Period: engine.Period(p.PeriodMonths),
			Status: parseStatus(p.Status),
		}

		if perk.Status == engine.StatusPartiallyRedeemed {
			if p.RemainingCents <= 0 || p.RemainingCents >= p.ValueCents {
				return Snapshot{}, fmt.Errorf("%s: perk %q", config.ErrCatalogParse, p.ID)
			}
			perk.RemainingValue = p.RemainingCents
		}

		if p.CycleAnchor != "" {
			d, err := time.Parse(config.DateFormatFullDash, p.CycleAnchor)
			if err != nil {
				return Snapshot{}, fmt.Errorf("%s: perk %q: %w", config.ErrCatalogParse, p.ID, err)
			}
			perk.CycleAnchor = d
		} else {
			// A perk without an anchor is pinned to the load time; for
			// epoch-aligned periods the exact day does not move boundaries.
			perk.CycleAnchor = now
		}

		snap.Perks = append(snap.Perks, perk)
	}

	slog.Debug(config.MsgCatalogLoaded,
		config.LogKeyComponent, config.CompCatalog,
		config.LogKeyPerks, len(snap.Perks),
		config.LogKeyCards, len(snap.Cards),
	)
	return snap, nil
}

func parseStatus(s string) engine.Status {
	switch engine.Status(s) {
	case engine.StatusPartiallyRedeemed, engine.StatusRedeemed:
		return engine.Status(s)
	default:
		return engine.StatusAvailable
	}
}
