package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level"`
	JSONLog  bool   `yaml:"json_log"`

	// Site
	URL   string `yaml:"url"`
	Email string `yaml:"email"`

	// Browser
	BrowserHeadless bool   `yaml:"headless"`
	ChromePath      string `yaml:"chrome_path"`
	ProfileDir      string `yaml:"profile_dir"`
	WindowWidth     int    `yaml:"window_width"`
	WindowHeight    int    `yaml:"window_height"`

	// Navigation
	WaitTimeout       time.Duration `yaml:"wait_timeout"`
	ProbeTimeout      time.Duration `yaml:"probe_timeout"`
	ProbePause        time.Duration `yaml:"probe_pause"`
	PinTimeout        time.Duration `yaml:"pin_timeout"`
	MaxUnknownRetries int           `yaml:"max_unknown_retries"`
	MaxFlowSteps      int           `yaml:"max_flow_steps"`

	// Harvest
	ViewportRetries int           `yaml:"viewport_retries"`
	ScrollStep      int           `yaml:"scroll_step"`
	ScrollInterval  time.Duration `yaml:"scroll_interval"`
	MaxPasses       int           `yaml:"max_passes"`

	// Banner downloads
	BannerConcurrency int     `yaml:"banner_concurrency"`
	BannerRatePerHost float64 `yaml:"banner_rate_per_host"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		URL:               DefaultURL,
		BrowserHeadless:   DefaultBrowserHeadless,
		ProfileDir:        defaultProfileDir(),
		WindowWidth:       DefaultWindowWidth,
		WindowHeight:      DefaultWindowHeight,
		WaitTimeout:       DefaultWaitTimeout,
		ProbeTimeout:      DefaultProbeTimeout,
		ProbePause:        DefaultProbePause,
		PinTimeout:        DefaultPinTimeout,
		MaxUnknownRetries: DefaultMaxUnknownRetries,
		MaxFlowSteps:      DefaultMaxFlowSteps,
		ViewportRetries:   DefaultViewportRetries,
		ScrollStep:        DefaultScrollStep,
		ScrollInterval:    DefaultScrollInterval,
		MaxPasses:         DefaultMaxPasses,
		BannerConcurrency: DefaultBannerConcurrency,
		BannerRatePerHost: DefaultBannerRatePerHost,
	}
}

func defaultProfileDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "westie", "profile")
}

// Load builds a Config by combining defaults, an optional config file, environment variables, and CLI flags.
// Caller should pass the executing *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	var flags *pflag.FlagSet
	if cmd != nil {
		flags = cmd.Flags()
	}

	if path := flagString(flags, "config"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if v := os.Getenv(EnvURL); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv(EnvEmail); v != "" {
		cfg.Email = v
	}
	if v := os.Getenv(EnvChromePath); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv(EnvProfileDir); v != "" {
		cfg.ProfileDir = v
	}

	if err := applyFlags(cfg, flags); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	// keys absent from the file keep their defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	if s := flagString(flags, "url"); s != "" {
		cfg.URL = s
	}
	if s := flagString(flags, "email"); s != "" {
		cfg.Email = s
	}
	if s := flagString(flags, "chrome-path"); s != "" {
		cfg.ChromePath = s
	}
	if s := flagString(flags, "profile-dir"); s != "" {
		cfg.ProfileDir = s
	}
	if changed(flags, "headless") {
		cfg.BrowserHeadless = flagString(flags, "headless") == "true"
	}
	if changed(flags, "json") && flagString(flags, "json") == "true" {
		cfg.JSONLog = true
	}
	if changed(flags, "quiet") && flagString(flags, "quiet") == "true" {
		cfg.LogLevel = "error"
	}
	if changed(flags, "verbose") && flagString(flags, "verbose") == "true" {
		cfg.LogLevel = "debug"
	}

	durations := map[string]*time.Duration{
		"timeout":         &cfg.WaitTimeout,
		"pin-timeout":     &cfg.PinTimeout,
		"scroll-interval": &cfg.ScrollInterval,
	}
	for name, dst := range durations {
		if !changed(flags, name) {
			continue
		}
		d, err := time.ParseDuration(flagString(flags, name))
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"scroll-step": &cfg.ScrollStep,
		"max-passes":  &cfg.MaxPasses,
		"max-unknown": &cfg.MaxUnknownRetries,
	}
	for name, dst := range ints {
		if !changed(flags, name) {
			continue
		}
		n, err := strconv.Atoi(flagString(flags, name))
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

func flagString(flags *pflag.FlagSet, name string) string {
	if flags == nil {
		return ""
	}
	if f := flags.Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func changed(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	return f != nil && f.Changed
}
