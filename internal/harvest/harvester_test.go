package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyniel/westie/internal/page"
	"github.com/zyniel/westie/internal/page/pagetest"
	"github.com/zyniel/westie/internal/retry"
)

func fastRetry(attempts int) retry.Config {
	return retry.Config{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}
}

func tileHTML(index int, title, dates string) string {
	return fmt.Sprintf(`<div data-index="%d"><div class="tile-inner"><div class="tile-image-area"><div class="tile-overlay">
<div class="tile-corner-container"><div class="bottom-left-content corner-content">%s</div></div>
<div class="center-content corner-content"><div class="tile-text-container">
<div class="tile-title">%s</div><div class="tile-subtitle">Lyon, France</div></div></div>
</div></div></div></div>`, index, dates, title)
}

func eventList(n int) *pagetest.List {
	l := pagetest.NewList(n)
	for i := range l.Items {
		l.Items[i].HTML = tileHTML(i, fmt.Sprintf("Event %d", i), "1-2 Mars 2024")
	}
	return l
}

func newHarvester(l *pagetest.List, opts Options) *Harvester {
	vt := NewViewportTracker(l, ViewportOptions{Selector: pagetest.ViewportSelector, Retry: fastRetry(3)})
	opts.ListSelector = pagetest.ListSelector
	opts.ScrollSelector = pagetest.ScrollSelector
	opts.Retry = fastRetry(2)
	return New(l, vt, opts)
}

func TestHarvest_RecordsEveryItemOnce(t *testing.T) {
	l := eventList(20)
	proc := NewRecordExtractor(l, RecordOptions{Metrics: NewMetrics()})

	var reports []PassReport
	h := newHarvester(l, Options{OnPass: func(r PassReport) { reports = append(reports, r) }})

	res, err := h.Harvest(context.Background(), proc)
	require.NoError(t, err)

	table := proc.Table()
	assert.Equal(t, 20, table.Len())
	for i := 0; i < 20; i++ {
		e, ok := table.Get(i)
		require.True(t, ok, "index %d missing", i)
		assert.Equal(t, fmt.Sprintf("Event %d", i), e.Name())
	}

	assert.Equal(t, 7, res.Passes)
	assert.Equal(t, 6, l.Scrolls)
	assert.Len(t, reports, 7)
	assert.Equal(t, Cursor{Index: 19, Y: 500}, res.Cursor)
	assert.False(t, res.PassLimitReached)
	assert.Equal(t, reports[len(reports)-1].Cursor, reports[len(reports)-2].Cursor)
	for i, r := range reports {
		assert.Equal(t, i+1, r.Pass)
	}
}

func TestHarvest_EmptyList(t *testing.T) {
	l := pagetest.NewList(0)
	proc := NewRecordExtractor(l, RecordOptions{})

	res, err := newHarvester(l, Options{}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Passes)
	assert.Zero(t, l.Scrolls)
	assert.Zero(t, proc.Table().Len())
	assert.Equal(t, Cursor{Index: -1}, res.Cursor)
}

func TestHarvest_ShortListFitsViewport(t *testing.T) {
	l := eventList(3)
	proc := NewRecordExtractor(l, RecordOptions{})

	res, err := newHarvester(l, Options{}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	assert.Equal(t, 3, proc.Table().Len())
	assert.Equal(t, 2, res.Passes)
}

func TestHarvest_StaleItemIsPickedUpLater(t *testing.T) {
	l := eventList(20)
	l.StaleGeometry[6] = 1
	proc := NewRecordExtractor(l, RecordOptions{})

	res, err := newHarvester(l, Options{}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	assert.True(t, proc.Table().Has(6))
	assert.Equal(t, 20, proc.Table().Len())
	assert.Positive(t, res.Skipped)
}

func TestHarvest_ParseFailuresAreDroppedNotRetried(t *testing.T) {
	l := eventList(10)
	l.Items[2].HTML = tileHTML(2, "Broken dates", "bientôt")
	l.Items[4].HTML = tileHTML(4, "Reversed", "9-1 Mars 2024")
	proc := NewRecordExtractor(l, RecordOptions{})

	_, err := newHarvester(l, Options{}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	assert.Equal(t, 8, proc.Table().Len())
	assert.False(t, proc.Table().Has(2))
	assert.False(t, proc.Table().Has(4))
	assert.Equal(t, 2, proc.Rejected())
}

func TestHarvest_BadIndexIsSkipped(t *testing.T) {
	l := eventList(10)
	l.Items[1].BadIndex = true
	proc := NewRecordExtractor(l, RecordOptions{})

	res, err := newHarvester(l, Options{}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	assert.Equal(t, 9, proc.Table().Len())
	assert.False(t, proc.Table().Has(1))
	assert.Positive(t, res.Failed)
}

func TestHarvest_IndexAttributeFromOptions(t *testing.T) {
	l := eventList(5)
	proc := NewRecordExtractor(l, RecordOptions{IndexAttribute: "data-row"})

	res, err := newHarvester(l, Options{}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	assert.Zero(t, proc.Table().Len())
	assert.Zero(t, res.Processed)
	assert.Equal(t, 5, res.Failed)
	assert.Equal(t, 1, res.Passes)
}

func TestHarvest_NonEventRowsAreAcknowledged(t *testing.T) {
	l := eventList(6)
	l.Items[0].HTML = `<div data-index="0"><div class="tile-inner"><h2>Mars 2024</h2></div></div>`
	proc := NewRecordExtractor(l, RecordOptions{})

	_, err := newHarvester(l, Options{}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	assert.Equal(t, 5, proc.Table().Len())
	assert.False(t, proc.Table().Has(0))
	assert.Zero(t, proc.Rejected())
}

func TestHarvest_PassLimit(t *testing.T) {
	l := eventList(50)
	proc := NewRecordExtractor(l, RecordOptions{})

	res, err := newHarvester(l, Options{MaxPasses: 2}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	assert.True(t, res.PassLimitReached)
	assert.Equal(t, 2, res.Passes)
	assert.Less(t, proc.Table().Len(), 50)
}

func TestHarvest_BeforePassHook(t *testing.T) {
	l := eventList(5)
	proc := NewRecordExtractor(l, RecordOptions{})

	hook := func(ctx context.Context) error {
		return l.Hide(ctx, "div.fab-target")
	}
	res, err := newHarvester(l, Options{BeforePass: hook}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	assert.Len(t, l.Hidden, res.Passes)
}

func TestHarvest_CancelledContext(t *testing.T) {
	l := eventList(20)
	proc := NewRecordExtractor(l, RecordOptions{})
	ctx, cancel := context.WithCancel(context.Background())

	h := newHarvester(l, Options{OnPass: func(PassReport) { cancel() }})
	_, err := h.Harvest(ctx, proc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestViewportTracker(t *testing.T) {
	t.Run("retries staleness", func(t *testing.T) {
		l := pagetest.NewList(1)
		l.ViewportStale = 2
		m := NewMetrics()
		vt := NewViewportTracker(l, ViewportOptions{Selector: pagetest.ViewportSelector, Retry: fastRetry(3), Metrics: m})

		b, err := vt.Bounds(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Bounds{Top: 100, Bottom: 600}, b)
	})

	t.Run("gives up after the bound", func(t *testing.T) {
		l := pagetest.NewList(1)
		l.ViewportStale = 5
		vt := NewViewportTracker(l, ViewportOptions{Selector: pagetest.ViewportSelector, Retry: fastRetry(3)})

		_, err := vt.Bounds(context.Background())
		require.ErrorIs(t, err, ErrViewportUnavailable)
		assert.ErrorIs(t, err, page.ErrStale)
		assert.Equal(t, 2, l.ViewportStale)
	})

	t.Run("missing viewport", func(t *testing.T) {
		l := pagetest.NewList(1)
		l.ViewportMissing = true
		vt := NewViewportTracker(l, ViewportOptions{Selector: pagetest.ViewportSelector, Retry: fastRetry(2)})

		_, err := vt.Bounds(context.Background())
		assert.ErrorIs(t, err, ErrViewportUnavailable)
		assert.Equal(t, CodeViewportUnavailable, Classify(err))
	})

	t.Run("caches until invalidated", func(t *testing.T) {
		l := pagetest.NewList(1)
		vt := NewViewportTracker(l, ViewportOptions{Selector: pagetest.ViewportSelector, Retry: fastRetry(1)})

		_, err := vt.Bounds(context.Background())
		require.NoError(t, err)

		l.ViewportMissing = true
		_, err = vt.Bounds(context.Background())
		require.NoError(t, err)

		vt.Invalidate()
		_, err = vt.Bounds(context.Background())
		assert.ErrorIs(t, err, ErrViewportUnavailable)
	})
}

func TestHarvest_ViewportUnavailable(t *testing.T) {
	l := eventList(5)
	l.ViewportMissing = true
	proc := NewRecordExtractor(l, RecordOptions{})

	_, err := newHarvester(l, Options{}).Harvest(context.Background(), proc)
	assert.ErrorIs(t, err, ErrViewportUnavailable)
	assert.Zero(t, proc.Table().Len())
}

func TestHarvest_Snapshots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	l := pagetest.NewList(8)
	proc, err := NewSnapshotCapturer(l, SnapshotOptions{Dir: dir, RowSelector: pagetest.RowSelector})
	require.NoError(t, err)

	_, err = newHarvester(l, Options{}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	saved := proc.Saved()
	require.Len(t, saved, 8)
	assert.Equal(t, 8, l.Captures)

	raw, err := os.ReadFile(filepath.Join(dir, "3.png"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 380, img.Bounds().Dx())
	assert.Equal(t, 90, img.Bounds().Dy())
}

func TestHarvest_SnapshotCaptureFailure(t *testing.T) {
	dir := t.TempDir()
	l := pagetest.NewList(8)
	l.CaptureErr = errors.New("target closed")
	proc, err := NewSnapshotCapturer(l, SnapshotOptions{Dir: dir})
	require.NoError(t, err)

	res, err := newHarvester(l, Options{}).Harvest(context.Background(), proc)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, 5, res.Failed)
	assert.Empty(t, proc.Saved())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCrop(t *testing.T) {
	l := pagetest.NewList(1)
	surface, err := l.CaptureSurface(context.Background())
	require.NoError(t, err)

	t.Run("clips to surface", func(t *testing.T) {
		out, err := Crop(surface, page.Rect{X: 300, Y: 550, Width: 200, Height: 200})
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 100, img.Bounds().Dx())
		assert.Equal(t, 50, img.Bounds().Dy())
	})

	t.Run("outside surface", func(t *testing.T) {
		_, err := Crop(surface, page.Rect{X: 0, Y: 900, Width: 10, Height: 10})
		assert.ErrorIs(t, err, ErrCaptureFailure)
	})

	t.Run("not a png", func(t *testing.T) {
		_, err := Crop([]byte("nope"), page.Rect{Width: 1, Height: 1})
		assert.ErrorIs(t, err, ErrCaptureFailure)
	})
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorCode(""), Classify(nil))
	assert.Equal(t, CodeTransientStale, Classify(fmt.Errorf("wrap: %w", page.ErrStale)))
	assert.Equal(t, CodeCaptureFailure, Classify(NewError(CodeCaptureFailure, "x", nil)))
	assert.Equal(t, ErrorCode(""), Classify(errors.New("other")))
}
