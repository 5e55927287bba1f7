// Package i18n localizes user-visible reminder text. The planner stays
// ignorant of translation: the application wires Translator methods into the
// planner's format hooks.
package i18n

import (
	"embed"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/engine"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator resolves message keys against the embedded locale bundle.
type Translator struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer

	// Languages lists the locale codes detected in the embedded files.
	Languages []string
}

// New loads the embedded locales and selects lang, falling back to the
// default language for unknown codes. A Translator is always usable: a key
// that cannot be resolved comes back verbatim.
func New(lang string) *Translator {
	t := &Translator{bundle: i18n.NewBundle(language.English)}
	t.bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return t
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		code := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if code == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := t.bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}

		t.Languages = append(t.Languages, code)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, code,
			config.LogKeyFile, name,
		)
	}

	t.SetLanguage(lang)
	return t
}

// SetLanguage switches the active language.
func (t *Translator) SetLanguage(lang string) {
	if lang == "" {
		lang = config.DefaultLanguage
	}
	t.localizer = i18n.NewLocalizer(t.bundle, lang, config.DefaultLanguage)
}

// Msg translates a key with no template data.
func (t *Translator) Msg(key string) string {
	return t.MsgData(key, nil)
}

// MsgData translates a key with template data, returning the key itself when
// the translation is missing so the UI never shows an empty string.
func (t *Translator) MsgData(key string, data map[string]any) string {
	if t.localizer == nil {
		slog.Debug(config.ErrLocNotInit,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
		)
		return key
	}
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// ExpiryText renders the localized title and body for a perk expiry reminder.
func (t *Translator) ExpiryText(perkName string, days int, remaining string) (string, string) {
	title := t.MsgData(config.TKeyExpiryTitle, map[string]any{"PerkName": perkName})
	body := t.MsgData(config.TKeyExpiryBody, map[string]any{
		"PerkName": perkName,
		"Days":     days,
		"Amount":   remaining,
	})
	return title, body
}

// RenewalText renders the localized title and body for a card renewal
// reminder.
func (t *Translator) RenewalText(cardName string, days int) (string, string) {
	title := t.MsgData(config.TKeyRenewalTitle, map[string]any{"CardName": cardName})
	body := t.MsgData(config.TKeyRenewalBody, map[string]any{
		"CardName": cardName,
		"Days":     days,
	})
	return title, body
}

// DigestText renders the localized first-of-month digest text.
func (t *Translator) DigestText() (string, string) {
	return t.Msg(config.TKeyDigestTitle), t.Msg(config.TKeyDigestBody)
}

// ResetText renders the localized reset confirmation text.
func (t *Translator) ResetText(perkName string) (string, string) {
	data := map[string]any{"PerkName": perkName}
	return t.MsgData(config.TKeyResetTitle, data), t.MsgData(config.TKeyResetBody, data)
}

// UrgencyLabel renders the localized display label for an urgency
// classification.
func (t *Translator) UrgencyLabel(u engine.Urgency) string {
	switch u.Tier {
	case engine.TierExpired:
		return t.Msg(config.TKeyTierExpired)
	case engine.TierUrgent:
		return t.MsgData(config.TKeyTierUrgent, map[string]any{"Days": u.Days})
	case engine.TierWarning:
		return t.MsgData(config.TKeyTierWarning, map[string]any{"Days": u.Days})
	case engine.TierMonthly:
		return t.Msg(config.TKeyTierMonthly)
	default:
		if u.Months > 0 {
			return t.MsgData(config.TKeyTierMonths, map[string]any{"Months": u.Months})
		}
		return t.MsgData(config.TKeyTierDays, map[string]any{"Days": u.Days})
	}
}

// ResetLabel renders the localized reset countdown for a redeemed perk.
func (t *Translator) ResetLabel(r engine.ResetCountdown) string {
	if r.Soon {
		return t.Msg(config.TKeyResetSoon)
	}
	return t.MsgData(config.TKeyResetDays, map[string]any{"Days": r.Days})
}
