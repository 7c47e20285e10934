package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zyniel/westie/internal/auth"
	"github.com/zyniel/westie/internal/harvest"
	"github.com/zyniel/westie/internal/page"
)

// siteActions performs the per-section steps of the flow.
type siteActions struct {
	page      page.Adapter
	markup    Markup
	timeout   time.Duration
	login     *auth.EmailLogin
	harvester *harvest.Harvester
	proc      harvest.Processor

	result harvest.Result
}

func (s *siteActions) Login(ctx context.Context) error {
	return s.login.Login(ctx)
}

func (s *siteActions) AwaitPin(ctx context.Context) error {
	return s.login.AwaitPin(ctx)
}

func (s *siteActions) OpenEvents(ctx context.Context) error {
	if !s.page.WaitVisible(ctx, s.markup.HomeEventsTile, s.timeout) {
		return fmt.Errorf("events tile: %w", page.ErrNotFound)
	}
	zerolog.Ctx(ctx).Debug().Msg("Opening the event list")
	return s.page.Click(ctx, s.markup.HomeEventsTile)
}

func (s *siteActions) Harvest(ctx context.Context) error {
	res, err := s.harvester.Harvest(ctx, s.proc)
	s.result = res
	return err
}
