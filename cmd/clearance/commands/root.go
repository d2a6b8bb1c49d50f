// Package commands implements the CLI commands for clearance.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/clearance/internal/logger"
	"github.com/jmylchreest/clearance/internal/version"
	"github.com/jmylchreest/clearance/pkg/clearance"
)

var rootCmd = &cobra.Command{
	Use:   "clearance",
	Short: "HTTP client that passes JavaScript bot challenges with a real browser",
	Long: `Clearance fetches URLs like a plain HTTP client. When a response is a
Cloudflare JavaScript challenge, it opens the page in Chrome, waits for the
challenge to clear, and replays the request with the browser's cookies and
user agent. Credentials are cached per URL for the life of the process.

Chrome must run with a display for real challenges to clear; on a server,
start Xvfb and pass --display.

Examples:
  # Fetch a page, printing the body
  clearance get "https://example.com/protected"

  # Add query parameters and headers
  clearance get "https://example.com/search" -q term=widgets -q page=2 \
      -H "Accept-Language: en-GB"

  # Print a JSON record with status and headers
  clearance get "https://example.com" --format json

  # Use a pre-installed Chromium
  clearance get "https://example.com" --skip-chromium-download \
      --chromium-path /usr/bin/chromium`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("json_logs"),
			Level: viper.GetString("log_level"),
		}); err != nil {
			return err
		}
		logger.Debug("starting", "version", version.UserAgentToken(), "config", viper.ConfigFileUsed())
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.clearance.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("quiet", false, "only log errors")
	flags.Bool("json-logs", false, "write logs as JSON")

	// Browser settings
	flags.Bool("headless", false, "run Chrome headless (real challenges will not clear)")
	flags.Bool("skip-chromium-download", false, "use --chromium-path instead of discovering Chrome")
	flags.String("chromium-path", "", "path to a Chrome/Chromium binary")
	flags.String("display", "", "X display for the browser, e.g. :10.0")
	flags.Bool("wait-for-network-idle", false, "accepted for compatibility; currently has no effect")
	flags.Duration("timeout", clearance.DefaultTimeout, "per-wait timeout while a challenge resolves")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("json_logs", flags.Lookup("json-logs"))
	_ = viper.BindPFlag("headless", flags.Lookup("headless"))
	_ = viper.BindPFlag("skip_chromium_download", flags.Lookup("skip-chromium-download"))
	_ = viper.BindPFlag("chromium_path", flags.Lookup("chromium-path"))
	_ = viper.BindPFlag("display", flags.Lookup("display"))
	_ = viper.BindPFlag("wait_for_network_idle", flags.Lookup("wait-for-network-idle"))
	_ = viper.BindPFlag("timeout", flags.Lookup("timeout"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".clearance")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("CLEARANCE")
	viper.AutomaticEnv()

	// Legacy millisecond timeout
	_ = viper.BindEnv("timeout_ms", "PUP_TIMEOUT", "CLEARANCE_TIMEOUT_MS")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logError("%v", err)
		return err
	}
	return nil
}

// clientConfig assembles the client configuration from flags, environment
// and config file.
func clientConfig(cmd *cobra.Command) clearance.Config {
	cfg := clearance.DefaultConfig()
	cfg.Headless = viper.GetBool("headless")
	cfg.SkipChromiumDownload = viper.GetBool("skip_chromium_download")
	cfg.ChromiumPath = viper.GetString("chromium_path")
	cfg.Display = viper.GetString("display")
	cfg.WaitForNetworkIdle = viper.GetBool("wait_for_network_idle")
	cfg.Timeout = resolveTimeout(
		cmd.Flags().Changed("timeout"),
		viper.GetDuration("timeout"),
		viper.GetInt64("timeout_ms"),
	)
	if ua := viper.GetString("user_agent"); ua != "" {
		cfg.UserAgent = ua
	}
	return cfg
}

// resolveTimeout picks the acquisition timeout. An explicit flag wins, then
// a millisecond value from PUP_TIMEOUT, then the configured duration.
func resolveTimeout(flagSet bool, configured time.Duration, legacyMs int64) time.Duration {
	if flagSet {
		return configured
	}
	if legacyMs > 0 {
		return time.Duration(legacyMs) * time.Millisecond
	}
	return configured
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
