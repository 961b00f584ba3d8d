package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show persisted audit state",
	Long: `Show the persisted audit state for a project: fingerprint index size,
cached tool results, and pattern cache entries.`,
	Run: runStatsCmd,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStatsCmd(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	c := newCoordinator(cfg, newLogger(cfg))
	defer c.Close() //nolint:errcheck // Best effort cleanup

	stats, err := c.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stats: %v\n", err)
		os.Exit(1)
	}

	output, err := FormatOutput(stats, OutputFormat(outputFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
