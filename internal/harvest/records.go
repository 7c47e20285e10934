package harvest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zyniel/westie/internal/event"
	"github.com/zyniel/westie/internal/page"
	"github.com/zyniel/westie/internal/site"
)

// readIndex parses the stable index of an item.
func readIndex(ctx context.Context, p page.Adapter, h page.Handle, attr string) (int, error) {
	raw, ok, err := p.Attribute(ctx, h, attr)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, NewError(CodeParseFailure, "item has no index attribute", nil).WithDetail("attribute", attr)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, NewError(CodeParseFailure, fmt.Sprintf("index %q is not an integer", raw), err)
	}
	return idx, nil
}

// RecordExtractor turns each new item into an event and stores it in a table.
type RecordExtractor struct {
	page      page.Adapter
	table     *event.Table
	attr      string
	lastIndex int
	metrics   *Metrics

	rejected map[int]struct{}
}

// RecordOptions configures a RecordExtractor.
type RecordOptions struct {
	// Table receives the events. A new table is created when nil.
	Table *event.Table
	// IndexAttribute names the attribute holding an item's stable
	// position. Defaults to site.IndexAttribute.
	IndexAttribute string
	Metrics        *Metrics
}

// NewRecordExtractor returns an extractor filling opts.Table.
func NewRecordExtractor(p page.Adapter, opts RecordOptions) *RecordExtractor {
	if opts.Table == nil {
		opts.Table = event.NewTable()
	}
	if opts.IndexAttribute == "" {
		opts.IndexAttribute = site.IndexAttribute
	}
	return &RecordExtractor{
		page:      p,
		table:     opts.Table,
		attr:      opts.IndexAttribute,
		lastIndex: -1,
		metrics:   opts.Metrics,
		rejected:  make(map[int]struct{}),
	}
}

// Table returns the table the extractor fills.
func (r *RecordExtractor) Table() *event.Table { return r.table }

// LastIndex implements Processor.
func (r *RecordExtractor) LastIndex() int { return r.lastIndex }

// Rejected counts items dropped because their content did not validate.
func (r *RecordExtractor) Rejected() int { return len(r.rejected) }

// Process implements Processor. Indices already in the table succeed without
// reading the item again. An item whose content fails to parse is logged once
// and reported as handled so it is not retried; it is never inserted.
func (r *RecordExtractor) Process(ctx context.Context, item Item) bool {
	logger := zerolog.Ctx(ctx)

	idx, err := readIndex(ctx, r.page, item.Handle, r.attr)
	if err != nil {
		r.metrics.observeFailure(err)
		logger.Warn().Err(err).Str("item", item.Handle.String()).Msg("Skipping item without a usable index")
		return false
	}
	r.lastIndex = idx

	if r.table.Has(idx) {
		return true
	}
	if _, ok := r.rejected[idx]; ok {
		return true
	}

	html, err := r.page.OuterHTML(ctx, item.Handle)
	if err != nil {
		r.metrics.observeFailure(err)
		logger.Debug().Err(err).Int("index", idx).Msg("Item markup unavailable")
		return false
	}

	tile, err := event.ParseTile(html)
	if err != nil {
		r.reject(ctx, idx, tile, err)
		return true
	}
	if !tile.IsEvent {
		logger.Debug().Int("index", idx).Msg("Item is not an event tile")
		return true
	}

	e, err := event.Build(tile)
	if err != nil {
		r.reject(ctx, idx, tile, err)
		return true
	}

	if r.table.InsertIfAbsent(idx, e) {
		r.metrics.setTableSize(r.table.Len())
		logger.Debug().
			Int("index", idx).
			Str("name", e.Name()).
			Str("start", e.Start().Format("2006-01-02")).
			Msg("Event recorded")
	}
	return true
}

func (r *RecordExtractor) reject(ctx context.Context, idx int, tile event.Tile, err error) {
	r.rejected[idx] = struct{}{}
	r.metrics.observeFailure(err)
	zerolog.Ctx(ctx).Warn().
		Err(err).
		Int("index", idx).
		Str("title", tile.Title).
		Str("dates", tile.Dates).
		Msg("Dropping item that failed to parse")
}
