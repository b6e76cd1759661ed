package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"marknav/internal/config"
	"marknav/internal/logging"
)

var (
	// Global flags
	configPath string
	debug      bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "marknav",
	Short: "marknav - pointer-addressed Markdown navigation and editing",
	Long: `marknav parses Markdown documents into pointer-addressed item
sequences, applies batch edits against stable semantic pointers, and
runs grounded LLM scans over bounded cursor portions.

Every item gets a pointer whose numeric id survives edits while its
label ("1.2.p3") tracks the current document structure.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		return logging.Initialize(debug || cfg.Logging.Debug)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(runsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "marknav.yaml"
	}
	return home + "/.marknav/config.yaml"
}
