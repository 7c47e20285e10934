package section

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrUnknownSection is returned when no section could be recognized
	// within the allowed number of consecutive probes.
	ErrUnknownSection = errors.New("unknown site section")
	// ErrTooManySteps is returned when the flow keeps moving between known
	// sections without ever reaching a terminal one.
	ErrTooManySteps = errors.New("site flow did not settle")
)

// Actions performs the per-section work of the flow.
type Actions interface {
	// Login submits the e-mail form.
	Login(ctx context.Context) error
	// AwaitPin blocks while the PIN is entered.
	AwaitPin(ctx context.Context) error
	// OpenEvents navigates from Home to the event list.
	OpenEvents(ctx context.Context) error
	// Harvest processes the event list. The flow ends after it returns.
	Harvest(ctx context.Context) error
}

// FlowOptions bounds the flow.
type FlowOptions struct {
	// MaxUnknown is how many consecutive unrecognized probes are tolerated.
	MaxUnknown int
	// MaxSteps caps the total number of probes.
	MaxSteps int
	// Pause separates an unrecognized probe from the next attempt.
	Pause time.Duration
}

// DefaultFlowOptions mirrors the app's slowest transitions.
func DefaultFlowOptions() FlowOptions {
	return FlowOptions{MaxUnknown: 10, MaxSteps: 50, Pause: time.Second}
}

// Flow moves the browser towards the event list, one section at a time.
type Flow struct {
	classifier *Classifier
	actions    Actions
	opts       FlowOptions
}

// NewFlow returns a flow using classifier to locate itself.
func NewFlow(classifier *Classifier, actions Actions, opts FlowOptions) *Flow {
	def := DefaultFlowOptions()
	if opts.MaxUnknown <= 0 {
		opts.MaxUnknown = def.MaxUnknown
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = def.MaxSteps
	}
	return &Flow{classifier: classifier, actions: actions, opts: opts}
}

// Run classifies the current screen and acts on it until a terminal section
// is reached. It returns the terminal section: Events after a harvest, or
// Lessons, which has no handler.
func (f *Flow) Run(ctx context.Context) (Section, error) {
	logger := zerolog.Ctx(ctx)
	unknown := 0

	for step := 1; step <= f.opts.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return Unknown, err
		}

		current := f.classifier.Classify(ctx)
		logger.Debug().Int("step", step).Str("section", current.String()).Msg("Section detected")

		if current != Unknown {
			unknown = 0
		}

		switch current {
		case Unknown:
			unknown++
			if unknown > f.opts.MaxUnknown {
				return Unknown, fmt.Errorf("%w after %d probes", ErrUnknownSection, unknown)
			}
			logger.Debug().Int("attempt", unknown).Int("max", f.opts.MaxUnknown).Msg("Section not recognized, retrying")
			if err := sleep(ctx, f.opts.Pause); err != nil {
				return Unknown, err
			}

		case LoginEmail:
			if err := f.actions.Login(ctx); err != nil {
				logger.Warn().Err(err).Msg("Login step failed")
			}

		case LoginPin:
			if err := f.actions.AwaitPin(ctx); err != nil {
				logger.Warn().Err(err).Msg("PIN step failed")
			}

		case Home:
			if err := f.actions.OpenEvents(ctx); err != nil {
				logger.Warn().Err(err).Msg("Failed to open the event list")
			}

		case Events:
			logger.Info().Msg("Event list reached")
			if err := f.actions.Harvest(ctx); err != nil {
				return Events, err
			}
			return Events, nil

		case Lessons:
			logger.Warn().Msg("Lessons section reached, nothing to harvest there")
			return Lessons, nil
		}
	}

	return Unknown, fmt.Errorf("%w within %d steps", ErrTooManySteps, f.opts.MaxSteps)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
