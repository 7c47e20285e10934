// Package harvest walks a virtualized list by alternating passes over the
// rendered items with fixed scroll steps, handing each fully visible item to
// a Processor. It stops once a pass leaves the progress cursor unchanged.
package harvest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/zyniel/westie/internal/page"
	"github.com/zyniel/westie/internal/retry"
)

// Defaults applied by New.
const (
	DefaultScrollStep = 300
	DefaultMaxPasses  = 1000
)

// Item is a rendered list entry together with the geometry read for it in
// the current pass.
type Item struct {
	Handle page.Handle
	Rect   page.Rect
}

// Processor handles one fully visible item.
type Processor interface {
	// Process reports whether the item was handled. Items the processor
	// chooses to skip for good, such as ones that failed validation, still
	// count as handled.
	Process(ctx context.Context, item Item) bool
	// LastIndex is the index of the most recently processed item.
	LastIndex() int
}

// Cursor is the progress marker compared between passes.
type Cursor struct {
	Index int
	Y     int
}

// Options configures a Harvester.
type Options struct {
	// ListSelector matches every rendered list item.
	ListSelector string
	// ScrollSelector matches the scrollable container.
	ScrollSelector string
	ScrollStep     int
	// PassInterval is the minimum time between two passes, which gives the
	// list time to render after a scroll.
	PassInterval time.Duration
	MaxPasses    int
	Retry        retry.Config

	// BeforePass runs at the start of each pass. Errors are logged.
	BeforePass func(ctx context.Context) error
	// OnPass is called after each pass.
	OnPass  func(PassReport)
	Metrics *Metrics
}

// PassReport summarizes one pass.
type PassReport struct {
	Pass      int
	Rendered  int
	Processed int
	Failed    int
	Skipped   int
	Cursor    Cursor
}

// Result summarizes a harvest.
type Result struct {
	Passes    int
	Processed int
	Failed    int
	Skipped   int
	Cursor    Cursor
	// PassLimitReached is set when the harvest stopped at MaxPasses
	// rather than by the cursor standing still.
	PassLimitReached bool
	Duration         time.Duration
}

// Harvester drives the pass/scroll loop. It is not safe for concurrent use.
type Harvester struct {
	page     page.Adapter
	viewport *ViewportTracker
	opts     Options
	limiter  *rate.Limiter
}

// New returns a Harvester over p.
func New(p page.Adapter, viewport *ViewportTracker, opts Options) *Harvester {
	if opts.ScrollStep <= 0 {
		opts.ScrollStep = DefaultScrollStep
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultConfig()
	}

	limit := rate.Inf
	if opts.PassInterval > 0 {
		limit = rate.Every(opts.PassInterval)
	}

	return &Harvester{
		page:     p,
		viewport: viewport,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Harvest runs passes until the cursor stops moving, MaxPasses is reached,
// or ctx is done. Only viewport and context failures are returned; item
// failures are counted and logged.
func (h *Harvester) Harvest(ctx context.Context, proc Processor) (Result, error) {
	logger := zerolog.Ctx(ctx)
	started := time.Now()

	var res Result
	bounds, err := h.viewport.Bounds(ctx)
	if err != nil {
		return res, err
	}

	cursor := Cursor{Index: -1}
	for {
		if err := h.limiter.Wait(ctx); err != nil {
			return finish(res, cursor, started), err
		}

		report := h.pass(ctx, proc, bounds, cursor, res.Passes+1)
		res.Passes++
		res.Processed += report.Processed
		res.Failed += report.Failed
		res.Skipped += report.Skipped
		h.opts.Metrics.incPass()
		if h.opts.OnPass != nil {
			h.opts.OnPass(report)
		}

		if err := ctx.Err(); err != nil {
			return finish(res, cursor, started), err
		}

		logger.Debug().
			Int("pass", report.Pass).
			Int("rendered", report.Rendered).
			Int("processed", report.Processed).
			Int("failed", report.Failed).
			Int("cursor_index", report.Cursor.Index).
			Int("cursor_y", report.Cursor.Y).
			Msg("Pass complete")

		if report.Cursor == cursor {
			break
		}
		cursor = report.Cursor

		if res.Passes >= h.opts.MaxPasses {
			res.PassLimitReached = true
			logger.Warn().
				Int("max_passes", h.opts.MaxPasses).
				Int("cursor_index", cursor.Index).
				Msg("Pass limit reached before the list ended")
			break
		}

		if err := h.page.ScrollBy(ctx, h.opts.ScrollSelector, h.opts.ScrollStep); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(res, cursor, started), ctxErr
			}
			// The next pass sees the same items and ends the harvest.
			logger.Warn().Err(err).Msg("Scroll failed")
		} else {
			h.opts.Metrics.incScroll()
		}
	}

	res = finish(res, cursor, started)
	logger.Info().
		Int("passes", res.Passes).
		Int("processed", res.Processed).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("Harvest finished")
	return res, nil
}

func finish(res Result, cursor Cursor, started time.Time) Result {
	res.Cursor = cursor
	res.Duration = time.Since(started)
	return res
}

// pass makes one sweep over the rendered items in document order. Items not
// fully inside the viewport are skipped; once an item has been processed the
// first such item ends the sweep, since everything after it is further down.
func (h *Harvester) pass(ctx context.Context, proc Processor, bounds Bounds, cursor Cursor, n int) PassReport {
	logger := zerolog.Ctx(ctx)
	report := PassReport{Pass: n, Cursor: cursor}

	if h.opts.BeforePass != nil {
		if err := h.opts.BeforePass(ctx); err != nil {
			logger.Warn().Err(err).Msg("Pre-pass hook failed")
		}
	}

	items, err := h.findItems(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to list rendered items")
		h.opts.Metrics.observeFailure(err)
		return report
	}
	report.Rendered = len(items)

	for _, handle := range items {
		if ctx.Err() != nil {
			break
		}

		rect, err := h.page.Geometry(ctx, handle)
		if err != nil {
			report.Skipped++
			h.opts.Metrics.observeItem(OutcomeStale)
			h.opts.Metrics.observeFailure(err)
			logger.Debug().Err(err).Str("item", handle.String()).Msg("Item geometry unavailable")
			continue
		}

		if !bounds.Contains(rect) {
			if report.Processed > 0 {
				break
			}
			report.Skipped++
			h.opts.Metrics.observeItem(OutcomeOutOfBounds)
			continue
		}

		if proc.Process(ctx, Item{Handle: handle, Rect: rect}) {
			report.Processed++
			report.Cursor = Cursor{Index: proc.LastIndex(), Y: rect.Y}
			h.opts.Metrics.observeItem(OutcomeProcessed)
		} else {
			report.Failed++
			h.opts.Metrics.observeItem(OutcomeFailed)
		}
	}

	return report
}

func (h *Harvester) findItems(ctx context.Context) ([]page.Handle, error) {
	cfg := h.opts.Retry
	cfg.Retryable = func(err error) bool { return errors.Is(err, page.ErrStale) }

	var items []page.Handle
	err := retry.WithRetry(ctx, cfg, func() error {
		var err error
		items, err = h.page.FindAll(ctx, h.opts.ListSelector)
		return err
	})
	return items, err
}
