package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var searchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "List all configured searches",
	Long:  "Reads the config and prints a table of all tracked searches.",
	RunE:  runSearches,
}

func init() {
	rootCmd.AddCommand(searchesCmd)
}

func runSearches(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-28s %-8s %-6s %s\n", "Search", "Kind", "Mode", "Status")
	fmt.Println(strings.Repeat("─", 52))

	enabled, disabled := 0, 0
	for _, s := range cfg.Searches {
		status := "enabled"
		if !s.Enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		fmt.Printf("%-28s %-8s %-6s %s\n", s.Label, s.Kind, s.Mode, status)
	}

	fmt.Printf("\nTotal: %d searches (%d enabled, %d disabled)\n", len(cfg.Searches), enabled, disabled)
	return nil
}
