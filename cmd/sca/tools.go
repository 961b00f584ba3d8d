package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sca/internal/analyzers"
)

// toolInfo is the list entry for one registered tool.
type toolInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Patterns []string `json:"patterns,omitempty"`
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered analysis tools",
	Run:   runToolsCmd,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runToolsCmd(cmd *cobra.Command, args []string) {
	registry, err := analyzers.Builtin()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building tool registry: %v\n", err)
		os.Exit(1)
	}

	infos := make([]toolInfo, 0, len(registry))
	for _, name := range registry.Names() {
		tool := registry[name]
		infos = append(infos, toolInfo{
			Name:     tool.Name,
			Kind:     string(tool.Kind),
			Patterns: tool.Patterns,
		})
	}

	output, err := FormatOutput(infos, OutputFormat(outputFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
