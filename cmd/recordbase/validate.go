package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/recordbase/config"
	"github.com/artpar/recordbase/core/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and model definitions",
	Long: `Validate the recordbase configuration file and every model definition.

Checks:
  - Config syntax is valid (when a config file exists)
  - Every model file parses and passes definition checks
  - Model names and tables do not collide
  - Every relation targets a declared model

Examples:
  recordbase validate
  recordbase validate --models ./models`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(cfgFile); err == nil {
		fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(out, "  %s Config syntax valid\n", crossMark)
			return fmt.Errorf("config error: %w", err)
		}
		fmt.Fprintf(out, "  %s Config syntax valid\n", checkMark)
		fmt.Fprintf(out, "  %s Database: %s (%s)\n", checkMark, cfg.Database.DSN, cfg.Database.Driver)
		fmt.Fprintln(out)
	}

	dir, err := resolveModelsDir()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Validating models in %s...\n\n", dir)
	defs, failed, err := parseModels(out, dir)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d model file(s) invalid", failed)
	}
	if len(defs) == 0 {
		return fmt.Errorf("no model definitions found in %s", dir)
	}

	if _, err := offlineManager(cmd.Context(), defs); err != nil {
		fmt.Fprintf(out, "  %s Models registered together\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Models registered together\n", checkMark)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%d model(s) valid.\n", len(defs))
	return nil
}

// parseModels parses every YAML file under dir, reporting each one.
func parseModels(out io.Writer, dir string) ([]schema.Definition, int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && (strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read models: %w", err)
	}
	sort.Strings(paths)

	var defs []schema.Definition
	failed := 0
	for _, path := range paths {
		def, err := schema.ParseFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "  %s %s\n", crossMark, path)
			fmt.Fprintf(out, "      %s\n", strings.ReplaceAll(err.Error(), "\n", "\n      "))
			continue
		}
		fmt.Fprintf(out, "  %s %s (%d fields, %d relations)\n", checkMark, def.Name, len(def.Rules), len(def.Relations))
		defs = append(defs, def)
	}
	return defs, failed, nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
