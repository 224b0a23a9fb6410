// Package main is the entry point for the ropesync server and mirror client.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/ropesync/internal/config"
	"github.com/dshills/ropesync/internal/observability"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "ropesync",
		Short: "Mirror a text document to many clients in real time",
		Long: `ropesync publishes a revisioned text document over websockets.

Commands:
  serve     Publish a watched file or a demo counter
  mirror    Connect to a server and display the mirrored document
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (.toml, .yaml); defaults to $"+config.EnvConfigFile)
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format (text, json)")

	rootCmd.AddCommand(newServeCmd(&flags))
	rootCmd.AddCommand(newMirrorCmd(&flags))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ropesync %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// loadConfig loads the config file and environment, then applies the
// global flag overrides.
func (f *globalFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config, out io.Writer) (*slog.Logger, error) {
	lc, err := cfg.Logging.LoggerConfig()
	if err != nil {
		return nil, err
	}
	lc.Output = out
	lc.Service = "ropesync"
	return observability.NewLogger(lc), nil
}
