package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zyniel/westie/internal/page"
	"github.com/zyniel/westie/internal/retry"
)

// Bounds is the vertical extent of the scroll viewport, [Top, Bottom).
type Bounds struct {
	Top    int
	Bottom int
}

// Contains reports whether r lies fully inside the bounds vertically.
func (b Bounds) Contains(r page.Rect) bool {
	return r.Y >= b.Top && r.Bottom() <= b.Bottom
}

// ViewportOptions configures a ViewportTracker.
type ViewportOptions struct {
	Selector string
	// WaitTimeout bounds how long each attempt waits for the viewport to show.
	WaitTimeout time.Duration
	Retry       retry.Config
	Metrics     *Metrics
}

// ViewportTracker resolves the viewport bounds once and caches them until
// Invalidate is called. It belongs to a single harvest and is not safe for
// concurrent use.
type ViewportTracker struct {
	page   page.Adapter
	opts   ViewportOptions
	bounds *Bounds
}

// NewViewportTracker returns a tracker for the element matched by opts.Selector.
func NewViewportTracker(p page.Adapter, opts ViewportOptions) *ViewportTracker {
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultConfig()
	}
	return &ViewportTracker{page: p, opts: opts}
}

// Bounds returns the cached bounds, looking them up on first use. Staleness
// and a missing viewport are retried; once the attempts are spent the error
// is CodeViewportUnavailable.
func (v *ViewportTracker) Bounds(ctx context.Context) (Bounds, error) {
	if v.bounds != nil {
		return *v.bounds, nil
	}

	cfg := v.opts.Retry
	cfg.Retryable = func(err error) bool {
		return errors.Is(err, page.ErrStale) || errors.Is(err, page.ErrNotFound)
	}

	var b Bounds
	attempt := 0
	err := retry.WithRetry(ctx, cfg, func() error {
		if attempt > 0 {
			v.opts.Metrics.incViewportRetry()
		}
		attempt++

		var err error
		b, err = v.lookup(ctx)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Bounds{}, ctxErr
		}
		v.opts.Metrics.observeFailure(ErrViewportUnavailable)
		return Bounds{}, NewError(CodeViewportUnavailable, "viewport bounds could not be resolved", err).
			WithDetail("selector", v.opts.Selector).
			WithDetail("attempts", attempt)
	}

	zerolog.Ctx(ctx).Debug().
		Int("top", b.Top).
		Int("bottom", b.Bottom).
		Msg("Viewport bounds resolved")

	v.bounds = &b
	return b, nil
}

func (v *ViewportTracker) lookup(ctx context.Context) (Bounds, error) {
	if !v.page.WaitVisible(ctx, v.opts.Selector, v.opts.WaitTimeout) {
		return Bounds{}, fmt.Errorf("viewport %q not visible: %w", v.opts.Selector, page.ErrNotFound)
	}
	h, err := v.page.Find(ctx, v.opts.Selector, nil)
	if err != nil {
		return Bounds{}, err
	}
	r, err := v.page.Geometry(ctx, h)
	if err != nil {
		return Bounds{}, err
	}
	if r.Height <= 0 {
		return Bounds{}, fmt.Errorf("viewport has no height: %w", page.ErrStale)
	}
	return Bounds{Top: r.Y, Bottom: r.Bottom()}, nil
}

// Invalidate drops the cached bounds, for instance after a resize.
func (v *ViewportTracker) Invalidate() {
	v.bounds = nil
}
