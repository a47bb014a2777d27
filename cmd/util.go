// Package cmd provides CLI commands for the lumina tool.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luminahq/lumina/config"
	"github.com/luminahq/lumina/credentials"
	"github.com/luminahq/lumina/pkg/audio"
	"github.com/luminahq/lumina/pkg/browser"
	"github.com/luminahq/lumina/pkg/calendar"
	"github.com/luminahq/lumina/pkg/ledger"
	"github.com/luminahq/lumina/pkg/logging"
	"github.com/luminahq/lumina/pkg/minutes"
	"github.com/luminahq/lumina/pkg/notify"
	"github.com/luminahq/lumina/pkg/observability"
	"github.com/luminahq/lumina/pkg/pipeline"
	"github.com/luminahq/lumina/pkg/session"
	"github.com/luminahq/lumina/pkg/store"
	"github.com/luminahq/lumina/pkg/transcribe"
)

// Debug is set by the root command's --debug flag before any RunE fires.
var Debug bool

// app holds everything a command needs, wired once per invocation.
type app struct {
	cfg          *config.Config
	logger       logging.Logger
	metrics      *observability.SessionMetrics
	store        *store.FSStore
	orchestrator *session.Orchestrator
	ledger       *ledger.Ledger

	closers []func()
}

// close runs the registered cleanups in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp loads configuration and wires the orchestrator stack. Daemon
// commands pass daemon=true to get JSON logs and a session log file sink.
// Overrides run after the file and environment are loaded, so command flags
// win over both.
func buildApp(ctx context.Context, daemon bool, overrides ...func(*config.Config)) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if Debug {
		cfg.Debug = true
	}
	for _, override := range overrides {
		override(cfg)
	}

	a := &app{cfg: cfg}

	logCfg := logging.DefaultConfig()
	if cfg.Debug {
		logCfg.Level = logging.LevelDebug
	}
	logCfg.JSONFormat = cfg.JSONLogs || daemon

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	if daemon {
		sink, err := logging.NewFileSink(logging.FileSinkConfig{
			Path: filepath.Join(cfg.DataDir, "lumina.log"),
		})
		if err != nil {
			return nil, fmt.Errorf("opening session log: %w", err)
		}
		logCfg.Sinks = append(logCfg.Sinks, sink)
		a.closers = append(a.closers, func() { _ = sink.Close() })
	}

	a.logger = logging.NewLogger(logCfg)
	logging.SetGlobal(a.logger)
	a.metrics = observability.DefaultSessionMetrics()

	a.store, err = store.NewFSStore(cfg.DataDir, a.logger)
	if err != nil {
		return nil, err
	}

	transcriber, err := transcribe.New(cfg.Transcribe, a.logger)
	if err != nil {
		return nil, err
	}
	generator := minutes.NewOllamaGenerator(cfg.Minutes.OllamaURL, cfg.Minutes.Model, a.logger)

	notifier, err := buildNotifier(cfg, a.logger)
	if err != nil {
		a.logger.Warn("notifications disabled", logging.Err(err))
	}

	if cfg.Ledger.IsConfigured() {
		l, err := ledger.Connect(ctx, cfg.Ledger.ConnectionString(), a.logger)
		if err != nil {
			a.logger.Warn("session ledger unavailable, continuing without it",
				logging.Err(err))
		} else {
			a.ledger = l
			a.closers = append(a.closers, l.Close)
		}
	}

	coordinator := pipeline.NewCoordinator(cfg.Pipeline, a.store, transcriber,
		generator, notifier, a.metrics, a.logger)

	a.orchestrator = session.NewOrchestrator(cfg,
		driverFactory(cfg, a.logger),
		recorderFactory(cfg, a.logger),
		a.store, coordinator, a.ledger, a.metrics, a.logger)

	return a, nil
}

// driverFactory builds the per-session browser launcher.
func driverFactory(cfg *config.Config, logger logging.Logger) session.DriverFactory {
	return func(ctx context.Context) (browser.Driver, error) {
		opts := browser.Options{
			ProfileName: cfg.Browser.ProfileName,
			Headless:    cfg.Browser.Headless,
		}
		if cfg.Browser.UseExistingProfile {
			opts.UserDataDir = cfg.Browser.ProfileDir
			if opts.UserDataDir == "" {
				opts.UserDataDir = browser.DefaultUserDataDir()
			}
		}
		return browser.New(ctx, opts, logger)
	}
}

// recorderFactory builds the per-session audio recorder.
func recorderFactory(cfg *config.Config, logger logging.Logger) session.RecorderFactory {
	return func() audio.Recorder {
		return audio.NewCaptureRecorder(cfg.Audio.SampleRate, logger)
	}
}

// buildNotifier wires the mailer with the SMTP password from the credential
// store. Returns (nil, err) when notifications cannot be configured; the
// pipeline treats a nil notifier as a skipped stage.
func buildNotifier(cfg *config.Config, logger logging.Logger) (notify.Notifier, error) {
	if len(cfg.Notify.Recipients) == 0 {
		return nil, fmt.Errorf("no recipients configured")
	}
	creds, err := credentials.NewStore()
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	password, err := creds.Get(credentials.SecretSMTPPassword)
	if err != nil {
		return nil, fmt.Errorf("no SMTP password stored, run 'lumina auth smtp': %w", err)
	}
	return notify.NewMailer(cfg.Notify.SMTPServer, cfg.Notify.SMTPPort,
		cfg.Notify.SMTPUser, password, cfg.Notify.Recipients, logger), nil
}

// buildCalendarService creates the calendar client from the stored OAuth
// token.
func buildCalendarService(cfg *config.Config, logger logging.Logger) (calendar.Service, error) {
	creds, err := credentials.NewStore()
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	raw, err := creds.Get(credentials.SecretCalendarToken)
	if err != nil {
		return nil, fmt.Errorf("no calendar token stored, run 'lumina auth calendar': %w", err)
	}
	tok, err := calendar.ParseStoredToken(raw)
	if err != nil {
		return nil, err
	}
	tokens := calendar.NewRefreshingTokenSource(*tok)
	return calendar.NewClient(cfg.Calendar.CalendarID, tokens, logger), nil
}
