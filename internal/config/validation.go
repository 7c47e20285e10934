package config

import (
	"fmt"
	"net/url"
)

func validate(c *Config) error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("site url %q must be an absolute http(s) URL", c.URL)
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be > 0")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be > 0")
	}
	if c.ProbePause < 0 {
		return fmt.Errorf("probe pause must be >= 0")
	}
	if c.PinTimeout <= 0 {
		return fmt.Errorf("pin timeout must be > 0")
	}
	if c.MaxUnknownRetries <= 0 {
		return fmt.Errorf("max unknown retries must be > 0")
	}
	if c.MaxFlowSteps <= 0 {
		return fmt.Errorf("max flow steps must be > 0")
	}
	if c.ViewportRetries <= 0 {
		return fmt.Errorf("viewport retries must be > 0")
	}
	if c.ScrollStep <= 0 || c.ScrollStep > DefaultMaxScrollStep {
		return fmt.Errorf("scroll step must be between 1 and %d", DefaultMaxScrollStep)
	}
	if c.ScrollInterval < 0 {
		return fmt.Errorf("scroll interval must be >= 0")
	}
	if c.MaxPasses <= 0 {
		return fmt.Errorf("max passes must be > 0")
	}
	if c.BannerConcurrency <= 0 {
		return fmt.Errorf("banner concurrency must be > 0")
	}
	if c.BannerRatePerHost < 0 {
		return fmt.Errorf("banner rate per host must be >= 0")
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("window size must be > 0")
	}
	return nil
}
