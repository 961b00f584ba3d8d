package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sca/internal/analyzers"
	"sca/internal/config"
	"sca/internal/coordinator"
	"sca/internal/slogutil"
	"sca/internal/version"
)

var (
	projectFlag  string
	logLevelFlag string
	outputFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "sca",
	Short: "SCA - Source Change Auditor",
	Long: `SCA (Source Change Auditor) runs analysis tools over a project tree and
caches their results per tool, so unchanged files are never re-analyzed.
Change detection is fingerprint-based; audit state lives under .sca/.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("SCA version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", ".",
		"Project root to audit")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&outputFlag, "output", "json",
		"Output format: json or yaml")
}

// loadConfig reads the project configuration, applying CLI overrides.
func loadConfig() *config.Config {
	cfg, err := config.Load(projectFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	return cfg
}

// newLogger builds the stderr logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	return slogutil.NewStderr(slogutil.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
}

// newCoordinator wires the audit pipeline for the configured project.
// The caller must Close it.
func newCoordinator(cfg *config.Config, logger *slog.Logger) *coordinator.Coordinator {
	registry, err := analyzers.Builtin()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building tool registry: %v\n", err)
		os.Exit(1)
	}

	c, err := coordinator.New(cfg, registry, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audit state: %v\n", err)
		os.Exit(1)
	}
	return c
}
