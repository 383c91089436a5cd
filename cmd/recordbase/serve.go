package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/recordbase/bootstrap"
	"github.com/artpar/recordbase/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the recordbase HTTP server.

The server will:
  - Load configuration from recordbase.yaml (or --config)
  - Or load configuration from RECORDBASE_* environment variables
  - Open the record store and register every model definition
  - Serve records under /api/{model}

Environment variables (for Docker deployments):
  RECORDBASE_MODELS_DIR       - Model definitions directory (required)
  RECORDBASE_DATABASE_DRIVER  - sqlite or memory (default: sqlite)
  RECORDBASE_DATABASE_DSN     - Database path (default: recordbase.db)
  RECORDBASE_SERVER_PORT      - Server port (default: 8080)
  RECORDBASE_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  recordbase serve
  recordbase serve --config /etc/recordbase/config.yaml
  recordbase serve --hot-reload=false

  # Docker (env vars only):
  RECORDBASE_MODELS_DIR=/models recordbase serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	if modelsDir != "" {
		// The env override survives config reloads.
		os.Setenv("RECORDBASE_MODELS_DIR", modelsDir)
	}

	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	if !hasConfigFile && !config.HasEnvConfig() {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "No configuration found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Option 1: Create %s with at least models.dir\n", cfgFile)
		fmt.Fprintln(out, "Option 2: Pass --models or set RECORDBASE_MODELS_DIR")
		return nil
	}

	opts := bootstrap.Options{Version: version}

	var app *bootstrap.App
	var err error
	if hasConfigFile && hotReload {
		app, err = bootstrap.New(cfgFile, opts)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}
		if !hasConfigFile {
			fmt.Fprintln(cmd.OutOrStdout(), "Running with environment variables (no config file)")
		}
		app, err = bootstrap.NewFromConfig(cfg, opts)
	}
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
