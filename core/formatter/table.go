package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/artpar/recordbase/core/convention"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// FormatList formats the outputs as one row each.
func (f *TableFormatter) FormatList(w io.Writer, mod convention.Derived, rows []map[string]any, opts FormatOptions) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No records found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	columns := Columns(mod, rows, opts.Columns)

	if !opts.NoHeader {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = strings.ToUpper(col)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, row := range rows {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = formatValue(row[col], opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// FormatRecord formats a single output as label/value lines.
func (f *TableFormatter) FormatRecord(w io.Writer, mod convention.Derived, row map[string]any, opts FormatOptions) error {
	if row == nil {
		_, err := fmt.Fprintln(w, "Record not found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, col := range Columns(mod, []map[string]any{row}, opts.Columns) {
		fmt.Fprintf(tw, "%s:\t%s\n", formatLabel(col), formatValue(row[col], 0))
	}
	return tw.Flush()
}

// formatLabel turns a snake_case key into Title Case. Relation keys keep
// their leading separator.
func formatLabel(name string) string {
	words := strings.Split(name, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

func formatValue(val any, maxWidth int) string {
	var str string
	switch v := val.(type) {
	case nil:
		return "-"
	case string:
		str = v
	case bool:
		str = "no"
		if v {
			str = "yes"
		}
	case []byte:
		str = "[binary]"
	case int:
		str = strconv.Itoa(v)
	case int64:
		str = strconv.FormatInt(v, 10)
	case float64:
		if v == float64(int64(v)) {
			str = strconv.FormatInt(int64(v), 10)
		} else {
			str = strconv.FormatFloat(v, 'f', 2, 64)
		}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			str = fmt.Sprint(v)
		} else {
			str = string(b)
		}
	}

	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}
	return str
}

func init() {
	Register(NewTableFormatter())
}
