package base

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iancoleman/strcase"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/hashicorp-forge/cdcs/pkg/cdcs"
)

// maxCellWidth trims long values such as XML content in table output.
const maxCellWidth = 60

// Render writes t to w as a table, JSON or YAML. columns restricts and
// orders the fields; all fields are shown when it is empty.
func Render(w io.Writer, format string, t cdcs.Table, columns ...string) error {
	if len(columns) == 0 {
		columns = t.Columns()
	}

	switch format {
	case "", "table":
		renderTable(w, t, columns)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plainRows(t, columns))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(plainRows(t, columns))
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json, yaml)", format)
	}
}

func renderTable(w io.Writer, t cdcs.Table, columns []string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = strcase.ToDelimited(col, ' ')
		configs[i] = table.ColumnConfig{Number: i + 1, WidthMax: maxCellWidth, WidthMaxEnforcer: text.Trim}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, r := range t {
		row := make(table.Row, len(columns))
		for i, col := range columns {
			row[i] = r.String(col)
		}
		tw.AppendRow(row)
	}
	tw.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(t))})
	tw.Render()
}

// plainRows converts rows into values both encoders render naturally.
func plainRows(t cdcs.Table, columns []string) []map[string]any {
	out := make([]map[string]any, len(t))
	for i, r := range t {
		row := make(map[string]any, len(columns))
		for _, col := range columns {
			row[col] = plain(r[col])
		}
		out[i] = row
	}
	return out
}

func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case cdcs.ID:
		if n, ok := x.Int(); ok && x.Kind() == cdcs.IDInt {
			return n
		}
		if x.IsZero() {
			return nil
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plain(e)
		}
		return out
	default:
		return v
	}
}
