package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear [tool]",
	Short: "Clear cached results",
	Long: `Clear cached tool results and pattern cache entries.

With a tool name, clears only that tool's entries. Without one, clears all
cached results. The fingerprint index is left untouched; the next audit
re-analyzes affected tools from scratch.

Examples:
  sca clear
  sca clear lint`,
	Args: cobra.MaximumNArgs(1),
	Run:  runClearCmd,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClearCmd(cmd *cobra.Command, args []string) {
	tool := ""
	if len(args) == 1 {
		tool = args[0]
	}

	cfg := loadConfig()
	c := newCoordinator(cfg, newLogger(cfg))
	defer c.Close() //nolint:errcheck // Best effort cleanup

	n, err := c.ClearCache(tool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing cache: %v\n", err)
		os.Exit(1)
	}

	output, err := FormatOutput(map[string]int{"cleared": n}, OutputFormat(outputFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
