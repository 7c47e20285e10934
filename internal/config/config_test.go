package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "harvest"}
	RegisterFlags(cmd)
	RegisterHarvestFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func clearEnv(t *testing.T) {
	for _, key := range []string{EnvURL, EnvEmail, EnvChromePath, EnvProfileDir} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(newCommand(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultURL, cfg.URL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.BrowserHeadless)
	assert.Equal(t, 20*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 300, cfg.ScrollStep)
	assert.Equal(t, 1000, cfg.MaxPasses)
	assert.Equal(t, 10, cfg.MaxUnknownRetries)
}

func TestLoad_NilCommand(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultScrollInterval, cfg.ScrollInterval)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "westie.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: https://file.example/
email: file@example.com
scroll_step: 150
scroll_interval: 250ms
headless: false
`), 0o600))

	t.Setenv(EnvEmail, "env@example.com")

	cfg, err := Load(newCommand(t, "--config", path, "--scroll-step", "400", "-v"))
	require.NoError(t, err)

	assert.Equal(t, "https://file.example/", cfg.URL)
	assert.Equal(t, "env@example.com", cfg.Email)
	assert.Equal(t, 400, cfg.ScrollStep)
	assert.Equal(t, 250*time.Millisecond, cfg.ScrollInterval)
	assert.False(t, cfg.BrowserHeadless)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultMaxPasses, cfg.MaxPasses)
}

func TestLoad_FlagOverrides(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(newCommand(t,
		"--headless=false", "--timeout", "5s", "--pin-timeout", "2m",
		"--profile-dir", "/tmp/profile", "--email", "me@example.com", "-q",
	))
	require.NoError(t, err)

	assert.False(t, cfg.BrowserHeadless)
	assert.Equal(t, 5*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 2*time.Minute, cfg.PinTimeout)
	assert.Equal(t, "/tmp/profile", cfg.ProfileDir)
	assert.Equal(t, "me@example.com", cfg.Email)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	_, err := Load(newCommand(t, "--scroll-step", "0"))
	assert.ErrorContains(t, err, "scroll step")

	_, err = Load(newCommand(t, "--url", "westie.app"))
	assert.ErrorContains(t, err, "site url")

	_, err = Load(newCommand(t, "--timeout", "soon"))
	assert.ErrorContains(t, err, "--timeout")

	_, err = Load(newCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.ErrorContains(t, err, "config file")
}
