package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/recordbase/core/query"
	"github.com/artpar/recordbase/core/schema"
)

var queryDelete bool

var queryCmd = &cobra.Command{
	Use:   "query <model> [filter-json]",
	Short: "Show the SQL a lookup filter builds",
	Long: `Build, without running, the query a lookup filter produces for a model.

The filter is a JSON object of field values; an array value becomes a
membership test. Unknown and lookup-restricted fields are rejected the same
way the server rejects them.

Examples:
  recordbase query post '{"author":"ann","status":["draft","review"]}'
  recordbase query post '{"author":"ann"}' --delete`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().BoolVar(&queryDelete, "delete", false, "build the delete form")
}

func runQuery(cmd *cobra.Command, args []string) error {
	dir, err := resolveModelsDir()
	if err != nil {
		return err
	}
	defs, err := schema.ParseDir(dir)
	if err != nil {
		return err
	}
	m, err := offlineManager(cmd.Context(), defs)
	if err != nil {
		return err
	}

	model, ok := m.Model(args[0])
	if !ok {
		return fmt.Errorf("model %q is not defined in %s", args[0], dir)
	}

	filter := map[string]any{}
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &filter); err != nil {
			return fmt.Errorf("filter must be a JSON object: %w", err)
		}
	}

	var base []query.Query
	if queryDelete {
		base = append(base, query.Delete(model.Table))
	}
	q, err := model.LookupQuery(filter, base...)
	if err != nil {
		return err
	}

	sql, params := q.Build()
	if params == nil {
		params = []any{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, sql)
	fmt.Fprintf(out, "params: %s\n", encoded)
	return nil
}
