package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel          = "info"
	DefaultJSONLog           = false
	DefaultURL               = "https://westie.app/"
	DefaultBrowserHeadless   = true
	DefaultWindowWidth       = 1280
	DefaultWindowHeight      = 1024
	DefaultWaitTimeout       = 20 * time.Second
	DefaultProbeTimeout      = 1 * time.Second
	DefaultProbePause        = 1 * time.Second
	DefaultPinTimeout        = 60 * time.Second
	DefaultMaxUnknownRetries = 10
	DefaultMaxFlowSteps      = 50
	DefaultViewportRetries   = 3
	DefaultScrollStep        = 300
	DefaultScrollInterval    = 1 * time.Second
	DefaultMaxPasses         = 1000
	DefaultMaxScrollStep     = 5000
	DefaultBannerConcurrency = 4
	DefaultBannerRatePerHost = 2.0
)

// Environment variables read by Load.
const (
	EnvURL        = "WESTIE_URL"
	EnvEmail      = "WESTIE_EMAIL"
	EnvChromePath = "WESTIE_CHROME_PATH"
	EnvProfileDir = "WESTIE_PROFILE_DIR"
)
