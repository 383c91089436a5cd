package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	modelsDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recordbase",
	Short: "Validated records with lookups and relation-aware output",
	Long: `recordbase serves declaratively modeled records over HTTP.

Models are declared in YAML: field rules, restrictions, unique keys and
relations. Every write runs a validated pre-save sequence; reads render
requested relations as nested output.

Commands:
  recordbase serve     # Start the HTTP server
  recordbase validate  # Check configuration and model definitions
  recordbase query     # Show the SQL a lookup filter builds
  recordbase lookup    # Print the extended output of stored records
  recordbase token     # Generate an admin API token`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "recordbase.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&modelsDir, "models", "m", "", "model definitions directory (overrides config)")
}
