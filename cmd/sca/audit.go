package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sca/internal/coordinator"
	"sca/internal/slogutil"
)

var (
	auditFull    bool
	auditExclude []string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run an audit over the project",
	Long: `Run all registered analysis tools over the project.

The first run analyzes everything. Later runs diff the file tree against the
persisted fingerprint index and re-analyze only what changed, serving the
rest from the per-tool result cache.

Examples:
  sca audit
  sca audit --full
  sca audit --exclude=lint --exclude=filestats`,
	Run: runAuditCmd,
}

func init() {
	auditCmd.Flags().BoolVar(&auditFull, "full", false,
		"Bypass change detection and re-analyze everything")
	auditCmd.Flags().StringSliceVar(&auditExclude, "exclude", nil,
		"Tool names to skip (repeatable)")
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	// Audit internals log to .sca/logs/audit.log; stdout carries the report
	logger, closer, err := slogutil.FileLogger(cfg.ProjectRoot,
		slogutil.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audit log: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close() //nolint:errcheck // Best effort cleanup

	c := newCoordinator(cfg, logger)
	defer c.Close() //nolint:errcheck // Best effort cleanup

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := c.RunAudit(ctx, coordinator.Options{
		ForceFull: auditFull,
		Exclude:   auditExclude,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running audit: %v\n", err)
		os.Exit(1)
	}

	output, err := FormatOutput(report, OutputFormat(outputFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
