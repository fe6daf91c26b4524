package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/pgbackman/pgbackman/internal/logging"
)

// OutputFormat is the shell's "set output_format" selector.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatCSV   OutputFormat = "csv"
	FormatJSON  OutputFormat = "json"
)

// renderRows prints headers/rows in the session's configured format. rows
// is a slice of string slices, one per data row.
func renderRows(format OutputFormat, headers []string, rows [][]string) {
	switch format {
	case FormatCSV:
		w := csv.NewWriter(os.Stdout)
		_ = w.Write(headers)
		_ = w.WriteAll(rows)
		w.Flush()
	case FormatJSON:
		records := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			rec := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(row) {
					rec[h] = row[i]
				}
			}
			records = append(records, rec)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(records)
	default:
		table := pterm.TableData{headers}
		table = append(table, rows...)
		_ = pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	}
}

func printSuccess(format string, a ...any) {
	pterm.Success.Println(fmt.Sprintf(format, a...))
}

func printError(ctx context.Context, err error) {
	logging.Ctx(ctx).Error().Err(err).Msg("command failed")
	pterm.Error.Println(err.Error())
}
