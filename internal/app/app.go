// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/zyniel/westie/internal/auth"
	"github.com/zyniel/westie/internal/config"
	"github.com/zyniel/westie/internal/harvest"
	"github.com/zyniel/westie/internal/site"
)

// EmailSource returns the stored login e-mail.
type EmailSource interface {
	LoadEmail() (string, error)
}

// Markup names the list elements the harvest works on. Section markers and
// login inputs are taken from package site directly.
type Markup struct {
	ListItems      string
	Viewport       string
	ScrollRoot     string
	TileRow        string
	IndexAttribute string
	HomeEventsTile string
	HUD            []string
}

// DefaultMarkup returns the selectors of the live app.
func DefaultMarkup() Markup {
	return Markup{
		ListItems:      site.ListItems,
		Viewport:       site.Viewport,
		ScrollRoot:     site.ScrollRoot,
		TileRow:        site.TileRow,
		IndexAttribute: site.IndexAttribute,
		HomeEventsTile: site.HomeEventsTile,
		HUD:            site.HUD,
	}
}

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared by the CLI commands.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	Metrics     *harvest.Metrics
	Markup      Markup
	Credentials EmailSource
	startTime   time.Time
}

// New creates the application: it builds the logger from cfg, the metrics
// registry and the credential store. A missing keyring is not fatal; the
// store falls back to a file.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := NewLogger(cfg, os.Stderr)
	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	app := &Application{
		Config:    cfg,
		Logger:    &logger,
		Metrics:   harvest.NewMetrics(),
		Markup:    DefaultMarkup(),
		startTime: time.Now(),
	}

	store, err := auth.NewCredentialStore()
	if err != nil {
		logger.Warn().Err(err).Msg("Credential store unavailable")
	} else {
		app.Credentials = store
		logger.Debug().Str("backend", store.Backend()).Msg("Credential store initialized")
	}

	return app, nil
}

// NewLogger returns the run logger: human-friendly console output, or JSON
// lines when cfg.JSONLog is set.
func NewLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	out := w
	if !cfg.JSONLog {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// WithLogger attaches the application logger to ctx.
func (a *Application) WithLogger(ctx context.Context) context.Context {
	return a.Logger.WithContext(ctx)
}

// LoginEmail resolves the e-mail used for login: configuration first, then
// the credential store. An empty result means no login is possible.
func (a *Application) LoginEmail() (string, error) {
	if a.Config.Email != "" {
		return a.Config.Email, nil
	}
	if a.Credentials == nil {
		return "", nil
	}
	email, err := a.Credentials.LoadEmail()
	if errors.Is(err, auth.ErrNoCredentials) {
		return "", nil
	}
	return email, err
}

// Close releases application resources.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
