// internal/cli/root.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zyniel/westie/internal/app"
	"github.com/zyniel/westie/internal/config"
	"github.com/zyniel/westie/internal/section"
	"github.com/zyniel/westie/internal/ui"
)

// Exit codes returned by Execute.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitUnknownSection = 3
)

// annotationNoApp marks commands that run without the application.
const annotationNoApp = "westie/no-app"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "westie",
	Short: "Harvest the Westie App event list",
	Long: `Westie drives a browser through the Westie App, logs in when needed and
walks the virtualized event list, exporting every event once.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}

	fmt.Fprintln(os.Stderr, ui.Error("Error: "+err.Error()))
	if errors.Is(err, section.ErrUnknownSection) {
		return ExitUnknownSection
	}
	return ExitError
}

func init() {
	// Lazily initialize the application before running commands (avoid starting app for -h/help)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[annotationNoApp] != "" || GetAppFromCmd(cmd) != nil {
			return nil
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}

		appCtx, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		// Store app in the command's context for commands to access
		SetApp(cmd, appCtx)
		return nil
	}

	// Ensure app is closed after command runs
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		appCtx := GetAppFromCmd(cmd)
		if appCtx == nil {
			return
		}
		_ = appCtx.Close(context.Background())
		SetApp(cmd, nil)
	}
}

func init() {
	// Register centralized flags
	config.RegisterFlags(rootCmd)

	// Customize help and version flag descriptions
	rootCmd.Flags().BoolP("help", "h", false, "Help for Westie")
	rootCmd.Flags().Bool("version", false, "Version for Westie")
}

func init() {
	// Disable the default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.SetHelpFunc(renderHelp)
	rootCmd.SetUsageFunc(renderUsage)
}
