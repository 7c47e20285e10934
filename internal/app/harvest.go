package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zyniel/westie/internal/auth"
	"github.com/zyniel/westie/internal/browser"
	"github.com/zyniel/westie/internal/downloader"
	"github.com/zyniel/westie/internal/event"
	"github.com/zyniel/westie/internal/harvest"
	"github.com/zyniel/westie/internal/page"
	"github.com/zyniel/westie/internal/retry"
	"github.com/zyniel/westie/internal/runctx"
	"github.com/zyniel/westie/internal/section"
)

// Mode selects the item processor.
type Mode string

const (
	ModeRecords   Mode = "records"
	ModeSnapshots Mode = "snapshots"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRecords, ModeSnapshots:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown harvest mode %q (want %s or %s)", s, ModeRecords, ModeSnapshots)
}

// HarvestRequest describes one run.
type HarvestRequest struct {
	Mode Mode
	// SnapshotsDir receives the crops in snapshot mode.
	SnapshotsDir string
	// OnPass, when set, is called after every pass.
	OnPass func(harvest.PassReport)
}

// HarvestOutcome is what a run produced.
type HarvestOutcome struct {
	RunID   string
	Section section.Section
	Result  harvest.Result
	// Table is set in record mode.
	Table    *event.Table
	Rejected int
	// Snapshots maps index to file in snapshot mode.
	Snapshots map[int]string
}

// Harvest starts a browser, runs the site flow on it and closes it.
func (a *Application) Harvest(ctx context.Context, req HarvestRequest) (*HarvestOutcome, error) {
	ctx = a.WithLogger(ctx)

	session, err := browser.Launch(ctx, browser.Options{
		Headless:          a.Config.BrowserHeadless,
		ChromePath:        a.Config.ChromePath,
		ProfileDir:        a.Config.ProfileDir,
		WindowWidth:       a.Config.WindowWidth,
		WindowHeight:      a.Config.WindowHeight,
		ActionTimeout:     a.Config.WaitTimeout,
		NavigationTimeout: 3 * a.Config.WaitTimeout,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			zerolog.Ctx(ctx).Warn().Err(cerr).Msg("Error closing browser")
		}
	}()

	return a.HarvestOn(ctx, session, req)
}

// HarvestOn runs the site flow on an already open page. The page is left
// open.
func (a *Application) HarvestOn(ctx context.Context, p page.Adapter, req HarvestRequest) (*HarvestOutcome, error) {
	base := zerolog.Ctx(ctx)
	if base.GetLevel() == zerolog.Disabled {
		base = a.Logger
	}
	ctx, run := runctx.Start(ctx, *base)
	logger := zerolog.Ctx(ctx)
	cfg := a.Config

	if req.Mode == "" {
		req.Mode = ModeRecords
	}

	outcome := &HarvestOutcome{RunID: run.ID}

	proc, err := a.processor(p, req, outcome)
	if err != nil {
		return nil, err
	}

	viewportRetry := retry.DefaultConfig()
	viewportRetry.MaxAttempts = cfg.ViewportRetries
	tracker := harvest.NewViewportTracker(p, harvest.ViewportOptions{
		Selector:    a.Markup.Viewport,
		WaitTimeout: cfg.WaitTimeout,
		Retry:       viewportRetry,
		Metrics:     a.Metrics,
	})

	opts := harvest.Options{
		ListSelector:   a.Markup.ListItems,
		ScrollSelector: a.Markup.ScrollRoot,
		ScrollStep:     cfg.ScrollStep,
		PassInterval:   cfg.ScrollInterval,
		MaxPasses:      cfg.MaxPasses,
		OnPass:         req.OnPass,
		Metrics:        a.Metrics,
	}
	if req.Mode == ModeSnapshots {
		opts.BeforePass = a.hideHUD(p)
	}

	email, err := a.LoginEmail()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load stored e-mail")
	}

	actions := &siteActions{
		page:      p,
		markup:    a.Markup,
		timeout:   cfg.WaitTimeout,
		login:     auth.NewEmailLogin(p, auth.LoginOptions{Email: email, Timeout: cfg.WaitTimeout, PinTimeout: cfg.PinTimeout}),
		harvester: harvest.New(p, tracker, opts),
		proc:      proc,
	}

	logger.Info().Str("url", cfg.URL).Str("mode", string(req.Mode)).Msg("Opening site")
	if err := p.Navigate(ctx, cfg.URL); err != nil {
		return nil, runctx.Wrap(ctx, fmt.Errorf("failed to open %s: %w", cfg.URL, err))
	}

	classifier := section.NewClassifier(p, section.DefaultMarkers(), cfg.ProbeTimeout)
	flow := section.NewFlow(classifier, actions, section.FlowOptions{
		MaxUnknown: cfg.MaxUnknownRetries,
		MaxSteps:   cfg.MaxFlowSteps,
		Pause:      cfg.ProbePause,
	})

	final, err := flow.Run(ctx)
	outcome.Section = final
	outcome.Result = actions.result
	if rec, ok := proc.(*harvest.RecordExtractor); ok {
		outcome.Table = rec.Table()
		outcome.Rejected = rec.Rejected()
	}
	if snap, ok := proc.(*harvest.SnapshotCapturer); ok {
		outcome.Snapshots = snap.Saved()
	}
	if err != nil {
		return outcome, runctx.Wrap(ctx, err)
	}

	logger.Info().
		Str("section", final.String()).
		Int("processed", outcome.Result.Processed).
		Int("failed", outcome.Result.Failed).
		Int("passes", outcome.Result.Passes).
		Dur("elapsed", run.Elapsed()).
		Msg("Harvest finished")
	return outcome, nil
}

func (a *Application) processor(p page.Adapter, req HarvestRequest, outcome *HarvestOutcome) (harvest.Processor, error) {
	switch req.Mode {
	case ModeRecords:
		return harvest.NewRecordExtractor(p, harvest.RecordOptions{
			Table:          event.NewTable(),
			IndexAttribute: a.Markup.IndexAttribute,
			Metrics:        a.Metrics,
		}), nil
	case ModeSnapshots:
		return harvest.NewSnapshotCapturer(p, harvest.SnapshotOptions{
			Dir:         req.SnapshotsDir,
			RowSelector:    a.Markup.TileRow,
			IndexAttribute: a.Markup.IndexAttribute,
			Metrics:        a.Metrics,
		})
	}
	return nil, fmt.Errorf("unknown harvest mode %q", req.Mode)
}

// hideHUD removes overlays that would otherwise land in every crop.
func (a *Application) hideHUD(p page.Adapter) func(context.Context) error {
	return func(ctx context.Context) error {
		var errs []error
		for _, sel := range a.Markup.HUD {
			if err := p.Hide(ctx, sel); err != nil {
				errs = append(errs, fmt.Errorf("hide %s: %w", sel, err))
			}
		}
		return errors.Join(errs...)
	}
}

// DownloadBanners fetches the banner of every event in table into dir and
// returns how many were saved. Individual failures are logged.
func (a *Application) DownloadBanners(ctx context.Context, table *event.Table, dir string) (int, error) {
	logger := zerolog.Ctx(ctx)

	jobs := downloader.JobsFromTable(table)
	if len(jobs) == 0 {
		return 0, nil
	}

	d := downloader.New(downloader.Options{
		Dir:         dir,
		Timeout:     a.Config.WaitTimeout,
		Concurrency: a.Config.BannerConcurrency,
		RatePerHost: a.Config.BannerRatePerHost,
	})

	saved := 0
	for _, res := range d.DownloadAll(ctx, jobs) {
		if res.Err != nil {
			logger.Warn().Err(res.Err).Int("index", res.Job.Index).Str("url", res.Job.URL).Msg("Banner download failed")
			continue
		}
		saved++
	}
	logger.Info().Int("saved", saved).Int("total", len(jobs)).Str("dir", dir).Msg("Banners downloaded")
	return saved, ctx.Err()
}
