// Package section identifies which screen of the app is showing and drives
// the navigation from wherever the browser lands to the event list.
package section

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zyniel/westie/internal/page"
	"github.com/zyniel/westie/internal/site"
)

// Section is a screen of the app.
type Section int

const (
	Unknown Section = iota
	LoginEmail
	LoginPin
	Home
	Events
	Lessons
)

func (s Section) String() string {
	switch s {
	case LoginEmail:
		return "login-email"
	case LoginPin:
		return "login-pin"
	case Home:
		return "home"
	case Events:
		return "events"
	case Lessons:
		return "lessons"
	default:
		return "unknown"
	}
}

// Marker ties a section to the selector that is visible only on it.
type Marker struct {
	Section  Section
	Selector string
}

// DefaultMarkers returns the app's markers in priority order. When several are
// visible at once, for instance during a transition, the first one wins: the
// login steps come before any content screen, and the content screens before
// Home.
func DefaultMarkers() []Marker {
	return []Marker{
		{LoginPin, site.PinInput},
		{LoginEmail, site.EmailInput},
		{Events, site.EventsHeader},
		{Lessons, site.LessonsHeader},
		{Home, site.HomeHeader},
	}
}

// Classifier probes the page for section markers.
type Classifier struct {
	page    page.Adapter
	markers []Marker
	// Timeout is the total time Classify waits for any marker.
	Timeout time.Duration
	// Poll is the per-marker wait within each round.
	Poll time.Duration
}

// NewClassifier returns a classifier over markers, highest priority first.
func NewClassifier(p page.Adapter, markers []Marker, timeout time.Duration) *Classifier {
	return &Classifier{
		page:    p,
		markers: markers,
		Timeout: timeout,
		Poll:    10 * time.Millisecond,
	}
}

// Classify waits up to Timeout for a marker to show and returns its section.
// Unknown means no marker became visible.
func (c *Classifier) Classify(ctx context.Context) Section {
	deadline := time.Now().Add(c.Timeout)
	for {
		if s, ok := c.probe(ctx); ok {
			return s
		}
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return Unknown
		}
		select {
		case <-ctx.Done():
			return Unknown
		case <-time.After(c.Poll):
		}
	}
}

// probe checks every marker once.
func (c *Classifier) probe(ctx context.Context) (Section, bool) {
	var visible []Section
	for _, m := range c.markers {
		if c.page.WaitVisible(ctx, m.Selector, c.Poll) {
			visible = append(visible, m.Section)
		}
	}
	if len(visible) == 0 {
		return Unknown, false
	}
	if len(visible) > 1 {
		names := make([]string, len(visible))
		for i, s := range visible {
			names[i] = s.String()
		}
		zerolog.Ctx(ctx).Warn().
			Strs("visible", names).
			Str("chosen", visible[0].String()).
			Msg("Several section markers visible")
	}
	return visible[0], true
}
