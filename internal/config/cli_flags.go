package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// FlagGroupAnnotation is the pflag annotation naming a flag's help section.
const FlagGroupAnnotation = "westie/group"

// Help sections, in display order.
const (
	GroupHarvest = "Harvest"
	GroupOutput  = "Output"
	GroupLogin   = "Login"
	GroupBrowser = "Browser"
	GroupLogging = "Logging"
)

// FlagGroups lists the help sections in the order they are printed.
var FlagGroups = []string{GroupHarvest, GroupOutput, GroupLogin, GroupBrowser, GroupLogging}

// FlagGroup returns the help section of f, or "" when it has none.
func FlagGroup(f *pflag.Flag) string {
	if g := f.Annotations[FlagGroupAnnotation]; len(g) > 0 {
		return g[0]
	}
	return ""
}

// SetFlagGroup files the named flags of fs under group. Unknown names are ignored.
func SetFlagGroup(fs *pflag.FlagSet, group string, names ...string) {
	for _, name := range names {
		_ = fs.SetAnnotation(name, FlagGroupAnnotation, []string{group})
	}
}

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	fs := cmd.PersistentFlags()
	fs.BoolP("verbose", "v", false, "Enable debug logging")
	fs.BoolP("quiet", "q", false, "Suppress all output except errors")
	fs.Bool("json", false, "Log in JSON format")
	fs.String("config", "", "Path to YAML configuration file (optional)")
	fs.String("url", "", "Site entry URL (default "+DefaultURL+")")
	fs.String("chrome-path", "", "Path to the Chrome/Chromium binary")
	fs.String("profile-dir", "", "Browser profile directory kept between runs")
	fs.Bool("headless", DefaultBrowserHeadless, "Run the browser without a window")
	fs.String("timeout", DefaultWaitTimeout.String(), "Wait timeout for page elements")

	SetFlagGroup(fs, GroupLogging, "verbose", "quiet", "json", "config")
	SetFlagGroup(fs, GroupBrowser, "url", "chrome-path", "profile-dir", "headless", "timeout")
}

// RegisterHarvestFlags registers the tuning flags of the harvest command.
func RegisterHarvestFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	fs := cmd.Flags()
	fs.String("email", "", "Login e-mail (overrides the stored credential)")
	fs.String("pin-timeout", DefaultPinTimeout.String(), "How long to wait for the PIN to be entered")
	fs.Int("max-unknown", DefaultMaxUnknownRetries, "Consecutive unrecognized screens tolerated")
	fs.Int("scroll-step", DefaultScrollStep, "Pixels scrolled between passes")
	fs.String("scroll-interval", DefaultScrollInterval.String(), "Minimum delay between passes")
	fs.Int("max-passes", DefaultMaxPasses, "Upper bound on harvest passes")

	SetFlagGroup(fs, GroupLogin, "email", "pin-timeout", "max-unknown")
	SetFlagGroup(fs, GroupHarvest, "scroll-step", "scroll-interval", "max-passes")
}
