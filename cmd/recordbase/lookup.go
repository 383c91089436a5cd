package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/recordbase/adapters/hasher"
	"github.com/artpar/recordbase/bootstrap"
	"github.com/artpar/recordbase/config"
	"github.com/artpar/recordbase/core/formatter"
	"github.com/artpar/recordbase/core/record"
)

var (
	lookupWith    string
	lookupMode    string
	lookupOutput  string
	lookupColumns string
	lookupID      int64
	lookupWidth   int
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <model> [filter-json]",
	Short: "Print the extended output of stored records",
	Long: `Run a lookup against the configured store and print the extended
output of every matching record.

Relations named with --with are attached under ":<relation>" keys; nested
relations use "a:b". Secret fields are never printed.

Examples:
  recordbase lookup account
  recordbase lookup account '{"name":"ann"}' --with notes -o json
  recordbase lookup note --id 3 --with account:notes -o yaml`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVarP(&lookupWith, "with", "w", "", "comma-separated relations to include")
	lookupCmd.Flags().StringVar(&lookupMode, "mode", record.ModeRead, "access mode passed to output hooks")
	lookupCmd.Flags().StringVarP(&lookupOutput, "output", "o", "table", "output format: "+strings.Join(formatter.List(), ", "))
	lookupCmd.Flags().StringVar(&lookupColumns, "columns", "", "comma-separated keys to print (default: all public keys)")
	lookupCmd.Flags().Int64Var(&lookupID, "id", 0, "print a single record by identity")
	lookupCmd.Flags().IntVar(&lookupWidth, "max-width", 40, "truncate table cells (0 = no limit)")
}

func runLookup(cmd *cobra.Command, args []string) error {
	f, ok := formatter.Get(lookupOutput)
	if !ok {
		return fmt.Errorf("unknown output format %q (available: %s)", lookupOutput, strings.Join(formatter.List(), ", "))
	}

	if modelsDir != "" {
		os.Setenv("RECORDBASE_MODELS_DIR", modelsDir)
	}
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	store, err := bootstrap.OpenStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	m := record.NewManager(record.Deps{Store: store, Logger: zerolog.Nop()})
	if _, err := bootstrap.LoadModels(ctx, m, cfg.Models.Dir, bootstrap.ModelConfig{
		Hasher: hasher.NewBcrypt(bcrypt.DefaultCost),
	}); err != nil {
		return err
	}

	model, ok := m.Model(args[0])
	if !ok {
		return fmt.Errorf("model %q is not defined in %s", args[0], cfg.Models.Dir)
	}

	with := splitList(lookupWith)
	opts := formatter.FormatOptions{Columns: splitList(lookupColumns), MaxWidth: lookupWidth}
	out := cmd.OutOrStdout()

	if lookupID > 0 {
		if len(args) == 2 {
			return fmt.Errorf("--id and a filter cannot be combined")
		}
		r, err := model.Find(ctx, lookupID)
		if err != nil {
			return err
		}
		var row map[string]any
		if r != nil {
			if row, err = r.ExtendedOutput(ctx, with, lookupMode); err != nil {
				return err
			}
		}
		return f.FormatRecord(out, model.Derived, row, opts)
	}

	filter := map[string]any{}
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &filter); err != nil {
			return fmt.Errorf("filter must be a JSON object: %w", err)
		}
	}

	records, err := model.Lookup(ctx, filter)
	if err != nil {
		return err
	}
	rows := make([]map[string]any, 0, len(records))
	for _, r := range records {
		row, err := r.ExtendedOutput(ctx, with, lookupMode)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return f.FormatList(out, model.Derived, rows, opts)
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
