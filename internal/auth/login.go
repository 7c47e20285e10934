// internal/auth/login.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zyniel/westie/internal/page"
	"github.com/zyniel/westie/internal/site"
)

// ErrPinTimeout is returned when the PIN form is still showing after the wait.
var ErrPinTimeout = errors.New("PIN was not entered in time")

// LoginOptions configures the e-mail login.
type LoginOptions struct {
	Email string
	// Timeout bounds each wait for a form element.
	Timeout time.Duration
	// PinTimeout is how long to wait for the PIN to be typed by hand.
	PinTimeout time.Duration

	EmailInput     string
	ContinueButton string
	PinInput       string
}

// EmailLogin submits the e-mail form and waits for the manual PIN step.
type EmailLogin struct {
	page page.Adapter
	opts LoginOptions
}

// NewEmailLogin fills unset selectors with the app defaults.
func NewEmailLogin(p page.Adapter, opts LoginOptions) *EmailLogin {
	if opts.EmailInput == "" {
		opts.EmailInput = site.EmailInput
	}
	if opts.ContinueButton == "" {
		opts.ContinueButton = site.LoginContinueButton
	}
	if opts.PinInput == "" {
		opts.PinInput = site.PinInput
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.PinTimeout <= 0 {
		opts.PinTimeout = 60 * time.Second
	}
	return &EmailLogin{page: p, opts: opts}
}

// Login types the e-mail, presses continue and then waits for the PIN.
func (l *EmailLogin) Login(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	if l.opts.Email == "" {
		return fmt.Errorf("login requested but no e-mail is configured: %w", ErrNoCredentials)
	}
	if !l.page.WaitVisible(ctx, l.opts.EmailInput, l.opts.Timeout) {
		return fmt.Errorf("e-mail input: %w", page.ErrNotFound)
	}

	logger.Info().Str("email", l.opts.Email).Msg("Submitting login e-mail")
	if err := l.page.Type(ctx, l.opts.EmailInput, l.opts.Email); err != nil {
		return fmt.Errorf("failed to type e-mail: %w", err)
	}

	if !l.page.WaitVisible(ctx, l.opts.ContinueButton, l.opts.Timeout) {
		return fmt.Errorf("continue button: %w", page.ErrNotFound)
	}
	if err := l.page.Click(ctx, l.opts.ContinueButton); err != nil {
		return fmt.Errorf("failed to press continue: %w", err)
	}

	if !l.page.WaitVisible(ctx, l.opts.PinInput, l.opts.Timeout) {
		return fmt.Errorf("PIN input: %w", page.ErrNotFound)
	}
	return l.AwaitPin(ctx)
}

// AwaitPin blocks until the PIN form goes away or PinTimeout passes.
func (l *EmailLogin) AwaitPin(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Dur("timeout", l.opts.PinTimeout).
		Msg("Waiting for the PIN sent by e-mail to be entered in the browser")

	if !l.page.WaitGone(ctx, l.opts.PinInput, l.opts.PinTimeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrPinTimeout
	}

	logger.Info().Msg("PIN accepted")
	return nil
}
