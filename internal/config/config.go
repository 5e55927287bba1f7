package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Perks"
	AppID             = "com.github.tartampluch.go-perks"
	EnvPrefix         = "goperks"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	// Used for creating secure cache directories.
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagCatalog      = "catalog"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescCatalog  = "Path to the perks catalog file (YAML)"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Preference Keys
// -----------------------------------------------------------------------------

const (
	PrefLanguage     = "language"
	PrefInterval     = "refresh_interval_min"
	PrefServerPort   = "server_port"
	PrefCatalogPath  = "catalog_path"
	PrefLastRun      = "last_run_version"
	PrefNotifChoice  = "notification_choice"
	PrefPromptPrefix = "prompt_last_shown."

	// Reminder category toggles. Stored as "true"/"false" strings so that an
	// absent key is distinguishable from an explicit opt-out.
	PrefMonthlyExpiry    = "remind_monthly_expiry"
	PrefQuarterlyExpiry  = "remind_quarterly_expiry"
	PrefSemiAnnualExpiry = "remind_semiannual_expiry"
	PrefAnnualExpiry     = "remind_annual_expiry"
	PrefCardRenewal      = "remind_card_renewal"
	PrefMonthlyDigest    = "remind_monthly_digest"
	PrefResetConfirm     = "remind_reset_confirmation"

	// Per-category day-offset lists, stored as comma-separated integers.
	PrefExpiryOffsets  = "offsets_expiry_days"
	PrefRenewalOffsets = "offsets_renewal_days"
)

// SupportedLanguages defines the list of available reminder languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Defaults & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort       = "18090"
	DefaultRefreshMin = 60
	DefaultLanguage   = "en"

	// DefaultEnabled is the documented fallback when a preference read fails:
	// reminders degrade to enabled, never silently off.
	DefaultEnabled = true

	DedupeSalt       = "go-perks-v1-" // Salt for deterministic dedupe key generation
	DedupeHashLength = 16
	FormatHashInput  = "%s|%s|%s|%s"

	// DaysPerMonthApprox converts a day count into a coarse month count for
	// long-horizon urgency labels. Display only, never used for boundaries.
	DaysPerMonthApprox = 30

	// Urgency day thresholds (inclusive upper bounds).
	UrgentMaxDays  = 3
	WarningMaxDays = 7
	NormalMaxDays  = 30

	// CooldownDaysDefault applies to recurring prompts (e.g. the notification
	// permission banner) unless the caller passes its own window.
	CooldownDaysDefault = 30

	// FeatureNotifPrompt names the recurring notification-permission prompt in
	// the per-feature prompt history.
	FeatureNotifPrompt = "notifications"

	// DefaultDispatchTick is how often the worker checks the delivery store
	// for reminders that have reached their fire time.
	DefaultDispatchTick = 1 * time.Minute
)

// DefaultExpiryOffsets are the day offsets before a perk's cycle boundary at
// which an expiry reminder fires, used when no user override is stored.
var DefaultExpiryOffsets = []int{7, 3, 1}

// DefaultRenewalOffsets are the day offsets before a card's renewal date at
// which a renewal reminder fires.
var DefaultRenewalOffsets = []int{90, 30, 7, 1}

// -----------------------------------------------------------------------------
// Notification Choice Values (CooldownGate inputs)
// -----------------------------------------------------------------------------

const (
	ChoiceEnabled  = "enabled"
	ChoiceDeclined = "declined"
	ChoiceLater    = "later"
	ChoiceUnset    = ""
)

// -----------------------------------------------------------------------------
// Reminder Types (dedupe key discriminators)
// -----------------------------------------------------------------------------

const (
	ReminderPerkExpiry   = "perk_expiry"
	ReminderCardRenewal  = "card_renewal"
	ReminderFirstOfMonth = "first_of_month"
	ReminderResetConfirm = "reset_confirmation"

	// DigestEntityID is the synthetic entity behind the first-of-month digest;
	// the digest is per-user, not per-perk.
	DigestEntityID = "digest"

	// FormatRenewalCycle names the renewal cycle by anniversary year.
	FormatRenewalCycle = "renewal-%04d"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Perks//Engine//EN"
	ICalCalName   = "Card Perks"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "goperks"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	DefaultICalRefresh = 1 * time.Hour

	// ICalTriggerDayBefore is the DISPLAY alarm trigger attached to exported
	// expiry events.
	ICalTriggerDayBefore = "-P1D"
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	DateFormatFullDash = "2006-01-02"

	// Limits
	MinPort = 1
	MaxPort = 65535

	FormatUID = "%s@%s"

	// File Extensions
	ExtYAML = ".yaml"
	ExtYML  = ".yml"

	// CatalogFileName is the default catalog location under the user config dir.
	CatalogFileName = "catalog.yaml"

	OffsetSeparator = ","
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	AllowedMethods     = "GET, HEAD"
	RouteRoot          = "/"
	RouteUpcoming      = "/upcoming.json"
	AddrSeparator      = ":"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType  = "Content-Type"
	HeaderCacheControl = "Cache-Control"
	HeaderETag         = "ETag"
	HeaderLastModified = "Last-Modified"
	HeaderAllow        = "Allow"
	HeaderXContentType = "X-Content-Type-Options"
	HeaderIfNoneMatch  = "If-None-Match"
	HeaderIfModSince   = "If-Modified-Since"
	HeaderRetryAfter   = "Retry-After"
	RetryAfterSeconds  = "10"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrCatalogOpen     = "failed to open catalog file"
	ErrCatalogParse    = "failed to parse catalog file"
	ErrCatalogPathReq  = "configuration error: catalog path is empty"
	ErrCatalogExt      = "configuration error: catalog must be a .yaml/.yml file"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "could not determine user cache dir"
	ErrCreateDir       = "could not create app cache dir"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrLocNotInit      = "localizer not initialized"
	ErrEnvParse        = "failed to parse environment overrides"
	ErrPrefsRead       = "preference read failed, using default"
	ErrAmountNotPos    = "redemption amount must be positive"
	ErrOffsetNotPos    = "offset values must be positive"
	ErrAmountExceeds   = "redemption amount exceeds remaining perk value"
	ErrPeriodInvalid   = "period must be 1, 3, 6 or 12 months"
	ErrScheduleReject  = "delivery collaborator rejected schedule"
	ErrCancelReject    = "delivery collaborator rejected cancel"
	ErrListScheduled   = "failed to list scheduled reminders"
	ErrPayloadEncode   = "failed to encode reminder payload"
	ErrDeliveryClosed  = "delivery store is closed"
	ErrDuplicatePerkID = "duplicate perk id in catalog"
	ErrDuplicateCardID = "duplicate card id in catalog"
	ErrUnknownCardRef  = "perk references unknown card id"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Feed initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults (used when no localizer is injected)
// -----------------------------------------------------------------------------

const (
	FallbackExpiryTitle  = "Perk expiring: %s"
	FallbackExpiryBody   = "%s expires in %d day(s). %s left to redeem."
	FallbackRenewalTitle = "Card renewal: %s"
	FallbackRenewalBody  = "%s renews in %d day(s)."
	FallbackDigestTitle  = "Monthly perks digest"
	FallbackDigestBody   = "Your perks have reset. Review this month's benefits."
	FallbackResetTitle   = "Perk reset: %s"
	FallbackResetBody    = "%s is available again."
	FallbackPerkName     = "Unknown perk"
	FallbackCardName     = "Unknown card"
	FallbackPromptTitle  = "Enable reminders?"
	FallbackPromptBody   = "Go Perks can notify you before perks expire and cards renew."
	FormatCurrencyCents  = "$%d.%02d"

	// StubVCalendar is the minimal valid iCalendar object used when no events
	// are found. Keeps feed clients from flagging an empty feed as invalid.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgPortBusy       = "Port %s is busy or unavailable."
	TitleStartupError = "Startup Error"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgCtxCancel      = "Context cancelled, shutting down"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Feed cache updated"
	MsgWorkerStart    = "Background worker started"
	MsgWorkerStop     = "Worker stopping due to context cancellation"
	MsgRefreshStart   = "Refresh pass started"
	MsgRefreshDone    = "Refresh pass finished"
	MsgRefreshFailed  = "Refresh pass failed"
	MsgUpdateInterval = "Refresh interval updated"
	MsgCatalogLoaded  = "Catalog snapshot loaded"
	MsgRolloverPerk   = "Perk rolled over to available"
	MsgPlanComputed   = "Reminder plan computed"
	MsgReconcileDone  = "Reminder reconciliation finished"
	MsgReminderFired  = "Reminder dispatched"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgPromptGated    = "Recurring prompt suppressed by cooldown"
	MsgPromptEligible = "Recurring prompt eligible to show"
	MsgGenSuccess     = "Calendar generation successful"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyExpiryTitle  = "reminder_expiry_title"   // Requires PerkName
	TKeyExpiryBody   = "reminder_expiry_body"    // Requires PerkName, Days, Amount
	TKeyRenewalTitle = "reminder_renewal_title"  // Requires CardName
	TKeyRenewalBody  = "reminder_renewal_body"   // Requires CardName, Days
	TKeyDigestTitle  = "reminder_digest_title"
	TKeyDigestBody   = "reminder_digest_body"
	TKeyResetTitle   = "reminder_reset_title" // Requires PerkName
	TKeyResetBody    = "reminder_reset_body"  // Requires PerkName
	TKeyTierExpired  = "tier_expired"
	TKeyTierUrgent   = "tier_urgent"  // Requires Days
	TKeyTierWarning  = "tier_warning" // Requires Days
	TKeyTierDays     = "tier_days_left"
	TKeyTierMonthly  = "tier_monthly"
	TKeyTierMonths   = "tier_months_left" // Requires Months
	TKeyResetSoon    = "reset_soon"
	TKeyResetDays    = "reset_days_left" // Requires Days
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyInterval  = "interval"
	LogKeyCount     = "count"
	LogKeyPerkID    = "perk_id"
	LogKeyCardID    = "card_id"
	LogKeyStatus    = "status"
	LogKeyCycle     = "cycle"
	LogKeyFireAt    = "fire_at"
	LogKeyOutcome   = "outcome"
	LogKeyScheduled = "scheduled"
	LogKeyCancelled = "cancelled"
	LogKeyUnchanged = "unchanged"
	LogKeyFailed    = "failed"
	LogKeyPerks     = "perks"
	LogKeyCards     = "cards"
	LogKeyRollovers = "rollovers"
	LogKeyDuration  = "duration_ms"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyFeature   = "feature"
	LogKeyChoice    = "choice"
	LogKeyTitle     = "title"
	LogKeyOld       = "old"
	LogKeyNew       = "new"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompEngine   = "engine"
	CompPlanner  = "planner"
	CompPrefs    = "prefs"
	CompNotify   = "notify"
	CompCatalog  = "catalog"
	CompCalendar = "calendar"
	CompServer   = "server"
	CompWorker   = "worker"
	CompMain     = "main"
	CompI18n     = "i18n"
	CompApp      = "app"
)
