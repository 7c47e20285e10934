// internal/cli/harvest.go
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/zyniel/westie/internal/app"
	"github.com/zyniel/westie/internal/config"
	"github.com/zyniel/westie/internal/harvest"
	"github.com/zyniel/westie/internal/output"
	"github.com/zyniel/westie/internal/ui"
)

var (
	harvestMode   string
	outputPath    string
	outputFormat  string
	snapshotsDir  string
	metricsFile   string
	bannersDir    string
	noProgressBar bool
)

// harvestCmd represents the harvest command
var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Walk the event list and export it",
	Long: `Opens the app, logs in if the saved browser profile is not authenticated,
navigates to the event list and scrolls it to the end.

In records mode every event is parsed and written to --output. In snapshots
mode a cropped PNG of each list row is saved to --snapshots-dir instead.

The login PIN is sent by e-mail and must be typed into the browser window,
so the first run should use --headless=false.`,
	Example: `  # First run: show the browser to type the PIN
  westie harvest --headless=false --email me@example.com

  # Export to a calendar
  westie harvest -o events.ics

  # Save one image per row
  westie harvest --mode snapshots --snapshots-dir shots/`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)

	config.RegisterHarvestFlags(harvestCmd)
	harvestCmd.Flags().StringVarP(&harvestMode, "mode", "m", string(app.ModeRecords), "Harvest mode: records or snapshots")
	harvestCmd.Flags().StringVarP(&outputPath, "output", "o", "events.json", "Export file (format from extension unless --format is set)")
	harvestCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Export format: json, csv, ics, markdown, sqlite")
	harvestCmd.Flags().StringVar(&snapshotsDir, "snapshots-dir", "snapshots", "Directory for row images in snapshots mode")
	harvestCmd.Flags().StringVar(&bannersDir, "banners-dir", "", "Also download event banners into this directory (records mode)")
	harvestCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when done")
	harvestCmd.Flags().BoolVar(&noProgressBar, "no-progress", false, "Disable the progress spinner")

	config.SetFlagGroup(harvestCmd.Flags(), config.GroupHarvest, "mode", "no-progress")
	config.SetFlagGroup(harvestCmd.Flags(), config.GroupOutput, "output", "format", "snapshots-dir", "banners-dir", "metrics-file")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	appCtx := GetAppFromCmd(cmd)
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}

	mode, err := app.ParseMode(harvestMode)
	if err != nil {
		return err
	}

	var format output.Format
	if mode == app.ModeRecords {
		if outputFormat != "" {
			format, err = output.ParseFormat(outputFormat)
		} else {
			format, err = output.FormatFromPath(outputPath)
		}
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = appCtx.WithLogger(ctx)

	req := app.HarvestRequest{Mode: mode, SnapshotsDir: snapshotsDir}

	var bar *progressbar.ProgressBar
	if !noProgressBar && !appCtx.Config.JSONLog {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("harvesting"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		req.OnPass = func(r harvest.PassReport) {
			bar.Describe(fmt.Sprintf("pass %d, cursor at #%d", r.Pass, r.Cursor.Index))
			_ = bar.Add(r.Processed)
		}
	}

	outcome, err := appCtx.Harvest(ctx, req)
	if bar != nil {
		_ = bar.Finish()
	}
	writeMetrics(ctx, appCtx)
	if err != nil {
		return err
	}

	if err := report(ctx, outcome, format); err != nil {
		return err
	}

	if bannersDir != "" && outcome.Table != nil {
		saved, err := appCtx.DownloadBanners(ctx, outcome.Table, bannersDir)
		if err != nil {
			return err
		}
		fmt.Printf("%s Saved %d banners to %s\n", ui.Success("✓"), saved, bannersDir)
	}
	return nil
}

func writeMetrics(ctx context.Context, appCtx *app.Application) {
	if metricsFile == "" {
		return
	}
	if err := appCtx.Metrics.WriteTextfile(metricsFile); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("file", metricsFile).Msg("Failed to write metrics")
	}
}

func report(ctx context.Context, outcome *app.HarvestOutcome, format output.Format) error {
	res := outcome.Result
	if res.PassLimitReached {
		fmt.Fprintln(os.Stderr, ui.Warn(fmt.Sprintf("Stopped after %d passes; the list may be incomplete", res.Passes)))
	}

	if outcome.Table == nil {
		dir, _ := filepath.Abs(snapshotsDir)
		fmt.Printf("%s Saved %d snapshots to %s\n", ui.Success("✓"), len(outcome.Snapshots), dir)
		return nil
	}

	if err := output.Save(format, outcome.Table, outputPath); err != nil {
		return fmt.Errorf("failed to export events: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("file", outputPath).Str("format", string(format)).Msg("Output saved")

	fmt.Printf("%s Saved %d events to %s", ui.Success("✓"), outcome.Table.Len(), outputPath)
	if outcome.Rejected > 0 {
		fmt.Print(ui.Info(fmt.Sprintf(" (%d rejected)", outcome.Rejected)))
	}
	fmt.Printf(" in %s\n", res.Duration.Round(10*time.Millisecond))
	return nil
}
