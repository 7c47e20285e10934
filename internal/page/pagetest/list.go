// Package pagetest provides an in-memory page.Adapter that behaves like a
// virtualized list: only the items near the viewport are rendered, handles
// go stale when their item scrolls out of the rendered window, and scrolling
// stops at the end of the content.
package pagetest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/zyniel/westie/internal/page"
)

// Default selectors understood by List.
const (
	ListSelector     = "div.list > div[data-index]"
	ViewportSelector = "div#viewport"
	ScrollSelector   = "div#scroll-root"
	RowSelector      = "div.row"
)

// Item is one entry of the simulated list.
type Item struct {
	Index int
	// HTML is returned by OuterHTML; empty produces a bare element.
	HTML string
	// BadIndex makes the index attribute unparseable.
	BadIndex bool
}

// List is a scripted page.Adapter. Zero-value fields are replaced by
// defaults in NewList; tests tweak fields before use.
type List struct {
	mu sync.Mutex

	Items []Item

	ItemHeight     int
	Width          int
	ViewportTop    int
	ViewportHeight int
	// Buffer is how many pixels above and below the viewport stay rendered.
	Buffer int

	// Visible lists selectors WaitVisible and Find succeed on.
	Visible map[string]bool

	// StaleGeometry makes the next n Geometry calls for an index fail.
	StaleGeometry map[int]int
	// ViewportStale makes the next n viewport Geometry calls fail.
	ViewportStale   int
	ViewportMissing bool
	CaptureErr      error

	OnClick    func(l *List, selector string)
	OnType     func(l *List, selector, text string)
	OnWaitGone func(l *List, selector string) bool

	offset int
	closed bool

	Navigations []string
	Clicks      []string
	Typed       map[string]string
	Hidden      []string
	Scrolls     int
	Captures    int
}

// NewList returns a list of n items indexed 0..n-1.
func NewList(n int) *List {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Index: i}
	}
	return &List{
		Items:          items,
		ItemHeight:     100,
		Width:          400,
		ViewportTop:    100,
		ViewportHeight: 500,
		Buffer:         200,
		Visible:        map[string]bool{},
		StaleGeometry:  map[int]int{},
		Typed:          map[string]string{},
	}
}

// SetVisible toggles a selector's visibility.
func (l *List) SetVisible(selector string, visible bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Visible[selector] = visible
}

// Offset returns the current scroll offset.
func (l *List) Offset() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offset
}

// Closed reports whether Close was called.
func (l *List) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

type itemHandle struct{ pos int }

func (h itemHandle) String() string { return "item#" + strconv.Itoa(h.pos) }

type rowHandle struct{ pos int }

func (h rowHandle) String() string { return "row#" + strconv.Itoa(h.pos) }

type viewportHandle struct{}

func (viewportHandle) String() string { return "viewport" }

type selectorHandle string

func (h selectorHandle) String() string { return string(h) }

func (l *List) itemRect(pos int) page.Rect {
	return page.Rect{
		X:      0,
		Y:      l.ViewportTop + pos*l.ItemHeight - l.offset,
		Width:  l.Width,
		Height: l.ItemHeight,
	}
}

func (l *List) rendered(pos int) bool {
	if pos < 0 || pos >= len(l.Items) {
		return false
	}
	r := l.itemRect(pos)
	return r.Bottom() > l.ViewportTop-l.Buffer && r.Y < l.ViewportTop+l.ViewportHeight+l.Buffer
}

func (l *List) maxOffset() int {
	m := len(l.Items)*l.ItemHeight - l.ViewportHeight
	if m < 0 {
		return 0
	}
	return m
}

func (l *List) FindAll(ctx context.Context, selector string) ([]page.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if selector != ListSelector {
		if l.Visible[selector] {
			return []page.Handle{selectorHandle(selector)}, nil
		}
		return nil, nil
	}

	var handles []page.Handle
	for pos := range l.Items {
		if l.rendered(pos) {
			handles = append(handles, itemHandle{pos: pos})
		}
	}
	return handles, nil
}

func (l *List) Find(ctx context.Context, selector string, scope page.Handle) (page.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := scope.(itemHandle); ok {
		if selector != RowSelector {
			return nil, page.ErrNotFound
		}
		if !l.rendered(h.pos) {
			return nil, page.ErrStale
		}
		return rowHandle(h), nil
	}

	switch {
	case selector == ViewportSelector && !l.ViewportMissing:
		return viewportHandle{}, nil
	case l.Visible[selector]:
		return selectorHandle(selector), nil
	}
	return nil, page.ErrNotFound
}

func (l *List) Geometry(ctx context.Context, h page.Handle) (page.Rect, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch h := h.(type) {
	case viewportHandle:
		if l.ViewportStale > 0 {
			l.ViewportStale--
			return page.Rect{}, page.ErrStale
		}
		return page.Rect{X: 0, Y: l.ViewportTop, Width: l.Width, Height: l.ViewportHeight}, nil
	case itemHandle:
		if !l.rendered(h.pos) {
			return page.Rect{}, page.ErrStale
		}
		idx := l.Items[h.pos].Index
		if n := l.StaleGeometry[idx]; n > 0 {
			l.StaleGeometry[idx] = n - 1
			return page.Rect{}, page.ErrStale
		}
		return l.itemRect(h.pos), nil
	case rowHandle:
		if !l.rendered(h.pos) {
			return page.Rect{}, page.ErrStale
		}
		r := l.itemRect(h.pos)
		return page.Rect{X: r.X + 10, Y: r.Y + 5, Width: r.Width - 20, Height: r.Height - 10}, nil
	}
	return page.Rect{}, page.ErrStale
}

func (l *List) Attribute(ctx context.Context, h page.Handle, name string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ih, ok := h.(itemHandle)
	if !ok {
		return "", false, nil
	}
	if !l.rendered(ih.pos) {
		return "", false, page.ErrStale
	}
	if name != "data-index" {
		return "", false, nil
	}
	item := l.Items[ih.pos]
	if item.BadIndex {
		return "n/a", true, nil
	}
	return strconv.Itoa(item.Index), true, nil
}

func (l *List) OuterHTML(ctx context.Context, h page.Handle) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ih, ok := h.(itemHandle)
	if !ok {
		return "", page.ErrNotFound
	}
	if !l.rendered(ih.pos) {
		return "", page.ErrStale
	}
	item := l.Items[ih.pos]
	if item.HTML != "" {
		return item.HTML, nil
	}
	return fmt.Sprintf(`<div data-index="%d"></div>`, item.Index), nil
}

func (l *List) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if selector == ViewportSelector {
		return !l.ViewportMissing
	}
	return l.Visible[selector]
}

func (l *List) WaitGone(ctx context.Context, selector string, timeout time.Duration) bool {
	l.mu.Lock()
	hook := l.OnWaitGone
	l.mu.Unlock()

	if hook != nil {
		return hook(l, selector)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.Visible[selector]
}

func (l *List) ScrollBy(ctx context.Context, selector string, dy int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if selector != ScrollSelector {
		return page.ErrNotFound
	}
	l.Scrolls++
	l.offset += dy
	if l.offset > l.maxOffset() {
		l.offset = l.maxOffset()
	}
	if l.offset < 0 {
		l.offset = 0
	}
	return nil
}

// CaptureSurface renders a gradient so crops can be told apart.
func (l *List) CaptureSurface(ctx context.Context) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Captures++
	if l.CaptureErr != nil {
		return nil, l.CaptureErr
	}

	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.ViewportTop+l.ViewportHeight))
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l *List) Navigate(ctx context.Context, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Navigations = append(l.Navigations, url)
	return nil
}

func (l *List) Click(ctx context.Context, selector string) error {
	l.mu.Lock()
	if !l.Visible[selector] {
		l.mu.Unlock()
		return page.ErrNotFound
	}
	l.Clicks = append(l.Clicks, selector)
	hook := l.OnClick
	l.mu.Unlock()

	if hook != nil {
		hook(l, selector)
	}
	return nil
}

func (l *List) Type(ctx context.Context, selector, text string) error {
	l.mu.Lock()
	if !l.Visible[selector] {
		l.mu.Unlock()
		return page.ErrNotFound
	}
	l.Typed[selector] += text
	hook := l.OnType
	l.mu.Unlock()

	if hook != nil {
		hook(l, selector, text)
	}
	return nil
}

func (l *List) Hide(ctx context.Context, selector string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Hidden = append(l.Hidden, selector)
	return nil
}

func (l *List) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// RenderedIndices returns the indices currently in the rendered window.
func (l *List) RenderedIndices() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []int
	for pos, item := range l.Items {
		if l.rendered(pos) {
			out = append(out, item.Index)
		}
	}
	sort.Ints(out)
	return out
}

var _ page.Adapter = (*List)(nil)
