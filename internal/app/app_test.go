package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyniel/westie/internal/auth"
	"github.com/zyniel/westie/internal/config"
	"github.com/zyniel/westie/internal/event"
	"github.com/zyniel/westie/internal/harvest"
	"github.com/zyniel/westie/internal/page/pagetest"
	"github.com/zyniel/westie/internal/section"
	"github.com/zyniel/westie/internal/site"
)

const eventsTile = "div#events-tile"

type storedEmail struct {
	email string
	err   error
}

func (s storedEmail) LoadEmail() (string, error) { return s.email, s.err }

func tile(index int, title string) string {
	return fmt.Sprintf(`<div data-index="%d"><div class="tile-inner"><div class="tile-image-area"><div class="tile-overlay">
<div class="tile-corner-container"><div class="bottom-left-content corner-content">12-14 Avril 2024</div></div>
<div class="center-content corner-content"><div class="tile-text-container">
<div class="tile-title">%s</div><div class="tile-subtitle">Nantes, France</div></div></div>
</div></div></div></div>`, index, title)
}

func testApp(t *testing.T, l *pagetest.List) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.WaitTimeout = 10 * time.Millisecond
	cfg.ProbeTimeout = time.Millisecond
	cfg.ProbePause = 0
	cfg.ScrollInterval = 0
	cfg.MaxUnknownRetries = 2

	logger := zerolog.Nop()
	return &Application{
		Config:  cfg,
		Logger:  &logger,
		Metrics: harvest.NewMetrics(),
		Markup: Markup{
			ListItems:      pagetest.ListSelector,
			Viewport:       pagetest.ViewportSelector,
			ScrollRoot:     pagetest.ScrollSelector,
			TileRow:        pagetest.RowSelector,
			IndexAttribute: "data-index",
			HomeEventsTile: eventsTile,
			HUD:            []string{"div.hud"},
		},
		Credentials: storedEmail{err: auth.ErrNoCredentials},
		startTime:   time.Now(),
	}
}

// homeList starts on Home; clicking the events tile shows the list.
func homeList(n int) *pagetest.List {
	l := pagetest.NewList(n)
	for i := range l.Items {
		l.Items[i].HTML = tile(i, fmt.Sprintf("Festival %d", i))
	}
	l.SetVisible(site.HomeHeader, true)
	l.SetVisible(eventsTile, true)
	l.OnClick = func(l *pagetest.List, selector string) {
		if selector == eventsTile {
			l.SetVisible(site.HomeHeader, false)
			l.SetVisible(site.EventsHeader, true)
		}
	}
	return l
}

func TestHarvestOn_Records(t *testing.T) {
	l := homeList(12)
	a := testApp(t, l)

	var passes int
	out, err := a.HarvestOn(context.Background(), l, HarvestRequest{
		OnPass: func(harvest.PassReport) { passes++ },
	})
	require.NoError(t, err)

	assert.Equal(t, section.Events, out.Section)
	assert.Equal(t, []string{a.Config.URL}, l.Navigations)
	assert.Equal(t, []string{eventsTile}, l.Clicks)
	require.NotNil(t, out.Table)
	assert.Equal(t, 12, out.Table.Len())
	assert.Equal(t, out.Result.Passes, passes)
	assert.NotEmpty(t, out.RunID)

	e, ok := out.Table.Get(11)
	require.True(t, ok)
	assert.Equal(t, "Festival 11", e.Name())
	assert.Equal(t, "Nantes", e.City())
	assert.Empty(t, l.Hidden)
}

func TestHarvestOn_Snapshots(t *testing.T) {
	l := homeList(3)
	a := testApp(t, l)
	dir := filepath.Join(t.TempDir(), "shots")

	out, err := a.HarvestOn(context.Background(), l, HarvestRequest{Mode: ModeSnapshots, SnapshotsDir: dir})
	require.NoError(t, err)

	assert.Nil(t, out.Table)
	assert.Len(t, out.Snapshots, 3)
	assert.Contains(t, l.Hidden, "div.hud")

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestHarvestOn_LoginWithoutEmail(t *testing.T) {
	l := pagetest.NewList(0)
	l.SetVisible(site.EmailInput, true)
	a := testApp(t, l)

	out, err := a.HarvestOn(context.Background(), l, HarvestRequest{})
	assert.ErrorIs(t, err, section.ErrTooManySteps)
	assert.Empty(t, l.Typed)
	assert.Equal(t, section.Unknown, out.Section)
}

func TestHarvestOn_UnknownSection(t *testing.T) {
	l := pagetest.NewList(0)
	a := testApp(t, l)

	out, err := a.HarvestOn(context.Background(), l, HarvestRequest{})
	assert.ErrorIs(t, err, section.ErrUnknownSection)
	assert.Equal(t, section.Unknown, out.Section)
	assert.Empty(t, l.Clicks)
}

func TestHarvestOn_LogsCarryRunID(t *testing.T) {
	l := homeList(1)
	a := testApp(t, l)

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	out, err := a.HarvestOn(ctx, l, HarvestRequest{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"run_id":"`+out.RunID+`"`)
}

func TestLoginEmail(t *testing.T) {
	a := testApp(t, pagetest.NewList(0))

	email, err := a.LoginEmail()
	require.NoError(t, err)
	assert.Empty(t, email)

	a.Credentials = storedEmail{email: "stored@example.com"}
	email, err = a.LoginEmail()
	require.NoError(t, err)
	assert.Equal(t, "stored@example.com", email)

	a.Config.Email = "flag@example.com"
	email, err = a.LoginEmail()
	require.NoError(t, err)
	assert.Equal(t, "flag@example.com", email)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("snapshots")
	require.NoError(t, err)
	assert.Equal(t, ModeSnapshots, m)

	_, err = ParseMode("video")
	assert.Error(t, err)
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.JSONLog = true
	cfg.LogLevel = "warn"

	logger := NewLogger(cfg, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestDownloadBanners(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg"))
	}))
	defer server.Close()

	a := testApp(t, pagetest.NewList(0))
	day := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	table := event.NewTable()
	for i, p := range []string{"/one.jpg", "/missing.jpg"} {
		banner, err := url.Parse(server.URL + p)
		require.NoError(t, err)
		e, err := event.New(event.Params{Name: fmt.Sprintf("Event %d", i), Start: day, End: day, BannerURL: banner})
		require.NoError(t, err)
		table.InsertIfAbsent(i, e)
	}

	dir := t.TempDir()
	saved, err := a.DownloadBanners(context.Background(), table, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	assert.FileExists(t, filepath.Join(dir, "0-event-0.jpg"))
}
