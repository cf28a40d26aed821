package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goodtune/timelog/internal/config"
	"github.com/goodtune/timelog/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
	logLevel   string

	cfg    *config.Config
	logger = zerolog.Nop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "timelog",
	Short: "Track time spent on tasks from the command line",
	Long: `timelog tracks time spent on tasks. Start a task, pause and resume it,
stop it to write a record, then report on or upload the records for a period.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger = setupLogger(cfg.Logging)

		logger.Debug().
			Str("version", version).
			Str("config", configPath).
			Str("storage", cfg.Storage.Type).
			Msg("Configuration loaded")
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cmd, err := rootCmd.ExecuteC()
	writeMetrics(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// writeMetrics exports counters for this invocation when a textfile path is
// configured.
func writeMetrics(cmd *cobra.Command) {
	if cfg == nil || cfg.Metrics.Textfile == "" || cmd == nil {
		return
	}
	metrics.LastRun.WithLabelValues(cmd.Name()).Set(float64(time.Now().Unix()))
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("Failed to write metrics")
	}
}
