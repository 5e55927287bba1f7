package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/kelseyhightower/envconfig"
	"github.com/tartampluch/go-perks/internal/app"
	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/i18n"
	"github.com/tartampluch/go-perks/internal/prefs"
	"github.com/tartampluch/go-perks/internal/server"
)

// envOverrides are settings read from the environment (GOPERKS_* variables).
// They take precedence over stored preferences; flags take precedence over
// both.
type envOverrides struct {
	Port     string `envconfig:"PORT"`
	Catalog  string `envconfig:"CATALOG"`
	Language string `envconfig:"LANGUAGE"`
	Debug    bool   `envconfig:"DEBUG"`
}

// main is the application entry point.
// It delegates execution to runMain to ensure that deferred function calls
// (like closing log files) are executed before the process terminates.
// os.Exit() does not run defers, so we must return an integer code first.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
// Returns config.ExitCodeSuccess on success, config.ExitCodeError on failure.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument & Environment Parsing
	// -------------------------------------------------------------------------
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	catalogFlag := flag.String(config.FlagCatalog, "", config.FlagDescCatalog)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	var env envOverrides
	if err := envconfig.Process(config.EnvPrefix, &env); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", config.ErrEnvParse, err)
		return config.ExitCodeError
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	// Structured logging (slog) is configured early to capture startup issues.
	logCloser := setupLogging(*debugMode || env.Debug)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	// Create a root context that cancels on SIGINT (Ctrl+C) or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, env, *catalogFlag); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run initializes the Fyne application, wires dependencies, and blocks in the
// desktop event loop.
func run(ctx context.Context, env envOverrides, catalogFlag string) error {
	a := fyneapp.NewWithID(config.AppID)

	// Record the version for potential migration logic in future updates.
	a.Preferences().SetString(config.PrefLastRun, config.Version)

	store := prefs.NewFyneStore(a.Preferences())

	// Dependency Injection. Precedence for each setting: flag, environment,
	// stored preference, built-in default.
	port := env.Port
	if port == "" {
		port = a.Preferences().StringWithFallback(config.PrefServerPort, config.DefaultPort)
	}

	catalogPath := catalogFlag
	if catalogPath == "" {
		catalogPath = env.Catalog
	}
	if catalogPath == "" {
		catalogPath = a.Preferences().StringWithFallback(config.PrefCatalogPath, defaultCatalogPath())
	}

	lang := env.Language
	if lang == "" {
		lang = a.Preferences().StringWithFallback(config.PrefLanguage, config.DefaultLanguage)
	}

	srv := server.NewFeedServer(port)
	translator := i18n.New(lang)

	notifier := func(title, body string) {
		a.SendNotification(fyne.NewNotification(title, body))
	}

	perks := app.NewPerksApp(ctx, store, srv, translator, notifier, catalogPath)

	// Preference edits take effect on the running worker.
	a.Preferences().AddChangeListener(perks.SettingsChanged)

	// One-shot invitation to turn notifications on, re-asked after the
	// cooldown window if the user picked "later".
	if prefs.NotificationChoice(store) != config.ChoiceEnabled && perks.MaybePromptNotifications() {
		a.SendNotification(fyne.NewNotification(config.FallbackPromptTitle, config.FallbackPromptBody))
	}

	go perks.Run()

	// Lifecycle Bridge:
	// Watch for context cancellation to quit the event loop gracefully.
	go func() {
		<-ctx.Done()
		slog.Info(config.MsgCtxCancel, config.LogKeyComponent, config.CompMain)
		a.Quit()
	}()

	// Blocks until the application quits.
	a.Run()

	return nil
}

// defaultCatalogPath places the catalog next to the user's other config files.
func defaultCatalogPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return config.CatalogFileName
	}
	return filepath.Join(configDir, config.AppID, config.CatalogFileName)
}

// printVersion outputs the build information to stdout and exits.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	// 1. Always write to Stdout.
	writers = append(writers, os.Stdout)

	// 2. Attempt to set up a file writer in the user's cache directory.
	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)

	// Ensure the directory exists with restricted permissions (700).
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
