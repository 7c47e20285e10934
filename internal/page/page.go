// Package page defines the small set of browser capabilities the harvester
// and the section flow depend on. Implementations own one browser session.
package page

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStale is returned when a handle or its geometry is no longer valid
	// because the page re-rendered. It is always safe to retry with a fresh
	// lookup.
	ErrStale = errors.New("element is stale")

	// ErrNotFound is returned when a selector matches nothing.
	ErrNotFound = errors.New("element not found")
)

// Handle is an opaque reference to a rendered element. It may become stale at
// any time.
type Handle interface {
	fmt.Stringer
}

// Rect is an element's bounding box in viewport pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Bottom returns the exclusive lower edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Adapter is the capability set needed to drive the site.
//
// Selectors beginning with '/' or '(' are XPath expressions, everything else
// is CSS. Scoped lookups only accept CSS.
type Adapter interface {
	// FindAll returns every element currently rendered for selector, in
	// document order. No match is an empty slice, not an error.
	FindAll(ctx context.Context, selector string) ([]Handle, error)
	// Find returns the first match under scope, or the document when scope
	// is nil. It returns ErrNotFound when nothing matches.
	Find(ctx context.Context, selector string, scope Handle) (Handle, error)
	// Geometry returns the element's bounding box or ErrStale.
	Geometry(ctx context.Context, h Handle) (Rect, error)
	// Attribute reads an attribute; ok is false when it is absent.
	Attribute(ctx context.Context, h Handle, name string) (value string, ok bool, err error)
	// OuterHTML returns the element's serialized markup.
	OuterHTML(ctx context.Context, h Handle) (string, error)

	// WaitVisible reports whether selector becomes visible within timeout.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool
	// WaitGone reports whether selector stops being present within timeout.
	WaitGone(ctx context.Context, selector string, timeout time.Duration) bool

	// ScrollBy scrolls the element matched by selector vertically by dy pixels.
	ScrollBy(ctx context.Context, selector string, dy int) error
	// CaptureSurface returns a PNG of the visible page.
	CaptureSurface(ctx context.Context) ([]byte, error)

	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	// Hide makes every match invisible without changing layout.
	Hide(ctx context.Context, selector string) error

	// Close releases the browser session. It is safe to call more than once.
	Close() error
}

// IsXPath reports whether selector should be evaluated as XPath.
func IsXPath(selector string) bool {
	return len(selector) > 0 && (selector[0] == '/' || selector[0] == '(')
}
