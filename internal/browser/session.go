// Package browser implements page.Adapter on top of a single chromedp tab.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/zyniel/westie/internal/page"
)

// ErrBrowserStart is returned when the browser process could not be started.
var ErrBrowserStart = errors.New("failed to start browser")

// Options configures the browser session.
type Options struct {
	Headless   bool
	ChromePath string
	// ProfileDir keeps cookies and local storage between runs, so a login
	// survives until the app expires it.
	ProfileDir   string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// ActionTimeout bounds single DOM calls that take no explicit timeout.
	ActionTimeout time.Duration
	// NavigationTimeout bounds page loads.
	NavigationTimeout time.Duration
}

// Session owns one browser process and its only tab.
type Session struct {
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	opts          Options
	closeOnce     sync.Once
}

// Launch starts the browser. The session outlives ctx; call Close to end it.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	logger := zerolog.Ctx(ctx)

	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1280, 1024
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 10 * time.Second
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 60 * time.Second
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("force-color-profile", "srgb"),
		// Box model coordinates and screenshot pixels must agree for cropping.
		chromedp.Flag("force-device-scale-factor", "1"),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	}

	if path := FindChrome(ctx, opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.ProfileDir))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	// The browser must not die with the caller's context, only with Close.
	parent := context.WithoutCancel(ctx)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			logger.Debug().Msgf("cdp: "+format, args...)
		}),
	)

	startCtx, cancelStart := context.WithTimeout(browserCtx, opts.NavigationTimeout)
	defer cancelStart()
	if err := chromedp.Run(startCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrBrowserStart, err)
	}

	logger.Debug().
		Bool("headless", opts.Headless).
		Str("profile", opts.ProfileDir).
		Msg("Browser started")

	return &Session{
		ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		opts:          opts,
	}, nil
}

// derive returns a context bound to the tab that also ends with ctx.
// Cancelling it aborts the running action without closing the tab.
func (s *Session) derive(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := s.derive(ctx, timeout)
	defer cancel()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func queryBy(selector string) chromedp.QueryOption {
	if page.IsXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func queryAllBy(selector string) chromedp.QueryOption {
	if page.IsXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQueryAll
}

type nodeHandle struct {
	node *cdp.Node
}

func (h nodeHandle) String() string {
	return fmt.Sprintf("%s#%d", strings.ToLower(h.node.LocalName), h.node.NodeID)
}

func nodeOf(h page.Handle) (*cdp.Node, error) {
	n, ok := h.(nodeHandle)
	if !ok || n.node == nil {
		return nil, fmt.Errorf("foreign handle %v: %w", h, page.ErrStale)
	}
	return n.node, nil
}

// stale maps a failed node call to ErrStale unless the caller gave up.
func stale(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", page.ErrStale, err)
}

func (s *Session) FindAll(ctx context.Context, selector string) ([]page.Handle, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, s.opts.ActionTimeout,
		chromedp.Nodes(selector, &nodes, queryAllBy(selector), chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, stale(ctx, err)
	}

	handles := make([]page.Handle, 0, len(nodes))
	for _, n := range nodes {
		handles = append(handles, nodeHandle{node: n})
	}
	return handles, nil
}

func (s *Session) Find(ctx context.Context, selector string, scope page.Handle) (page.Handle, error) {
	opts := []chromedp.QueryOption{queryBy(selector), chromedp.AtLeast(0)}
	if scope != nil {
		if page.IsXPath(selector) {
			return nil, fmt.Errorf("scoped lookups need a CSS selector, got %q", selector)
		}
		parent, err := nodeOf(scope)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.FromNode(parent))
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, stale(ctx, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%q: %w", selector, page.ErrNotFound)
	}
	return nodeHandle{node: nodes[0]}, nil
}

func (s *Session) Geometry(ctx context.Context, h page.Handle) (page.Rect, error) {
	n, err := nodeOf(h)
	if err != nil {
		return page.Rect{}, err
	}

	var box *dom.BoxModel
	err = s.run(ctx, s.opts.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		box, err = dom.GetBoxModel().WithNodeID(n.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return page.Rect{}, stale(ctx, err)
	}
	if box == nil || len(box.Border) < 8 {
		return page.Rect{}, fmt.Errorf("node %v has no layout: %w", h, page.ErrStale)
	}

	return page.Rect{
		X:      int(box.Border[0]),
		Y:      int(box.Border[1]),
		Width:  int(box.Width),
		Height: int(box.Height),
	}, nil
}

func (s *Session) Attribute(ctx context.Context, h page.Handle, name string) (string, bool, error) {
	n, err := nodeOf(h)
	if err != nil {
		return "", false, err
	}

	var attrs []string
	err = s.run(ctx, s.opts.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		attrs, err = dom.GetAttributes(n.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", false, stale(ctx, err)
	}

	// attributes come as a flat name, value, name, value list
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true, nil
		}
	}
	return "", false, nil
}

func (s *Session) OuterHTML(ctx context.Context, h page.Handle) (string, error) {
	n, err := nodeOf(h)
	if err != nil {
		return "", err
	}

	var html string
	err = s.run(ctx, s.opts.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		html, err = dom.GetOuterHTML().WithNodeID(n.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", stale(ctx, err)
	}
	return html, nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	return s.run(ctx, timeout, chromedp.WaitVisible(selector, queryBy(selector))) == nil
}

func (s *Session) WaitGone(ctx context.Context, selector string, timeout time.Duration) bool {
	return s.run(ctx, timeout, chromedp.WaitNotPresent(selector, queryBy(selector))) == nil
}

// elementJS returns a JavaScript expression yielding every match of selector.
func elementJS(selector string) string {
	lit, _ := json.Marshal(selector)
	if page.IsXPath(selector) {
		return fmt.Sprintf(`(function(){const r=document.evaluate(%s,document,null,XPathResult.ORDERED_NODE_SNAPSHOT_TYPE,null);const out=[];for(let i=0;i<r.snapshotLength;i++){out.push(r.snapshotItem(i));}return out;})()`, lit)
	}
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s))`, lit)
}

func (s *Session) ScrollBy(ctx context.Context, selector string, dy int) error {
	var found bool
	script := fmt.Sprintf(`(function(){const el=%s[0];if(!el){return false;}el.scrollBy({top:%d,left:0,behavior:'instant'});return true;})()`,
		elementJS(selector), dy)
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Evaluate(script, &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("scroll target %q: %w", selector, page.ErrNotFound)
	}
	return nil
}

func (s *Session) Hide(ctx context.Context, selector string) error {
	var hidden int
	script := fmt.Sprintf(`(function(){const els=%s;els.forEach(function(e){e.style.visibility='hidden';});return els.length;})()`,
		elementJS(selector))
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Evaluate(script, &hidden)); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Str("selector", selector).Int("count", hidden).Msg("Overlay hidden")
	return nil
}

func (s *Session) CaptureSurface(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, s.opts.NavigationTimeout, chromedp.Navigate(url))
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, s.opts.ActionTimeout, chromedp.Click(selector, queryBy(selector), chromedp.NodeVisible))
}

func (s *Session) Type(ctx context.Context, selector, text string) error {
	by := queryBy(selector)
	return s.run(ctx, s.opts.ActionTimeout,
		chromedp.Clear(selector, by, chromedp.NodeVisible),
		chromedp.SendKeys(selector, text, by, chromedp.NodeVisible),
	)
}

// Close shuts the browser down. Only the first call has an effect.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = chromedp.Cancel(s.ctx)
		s.browserCancel()
		s.allocCancel()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var _ page.Adapter = (*Session)(nil)
