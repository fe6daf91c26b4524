// Package format renders Admin API result sets as TABLE, CSV, or JSON, per
// spec.md §4.1's "read operations return result sets renderable as TABLE,
// CSV, or JSON with insertion-order-preserving column maps" requirement and
// the DESIGN NOTES' "output formatting is three-variant ... represent as a
// sum type plus an ordered mapping of column name -> value per record"
// guidance.
package format

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/pterm/pterm"
)

// Output is the shell's selected rendering mode, set via `set output_format=`.
type Output string

const (
	Table Output = "table"
	CSV   Output = "csv"
	JSON  Output = "json"
)

// Row is one record's columns, insertion-order-preserved.
type Row struct {
	columns []string
	values  map[string]string
}

// NewRow builds a Row from alternating column/value string pairs, in the
// order given — the order callers pass pairs in is the order rendered.
func NewRow(pairs ...string) Row {
	if len(pairs)%2 != 0 {
		panic("format.NewRow: odd number of arguments")
	}
	r := Row{values: make(map[string]string, len(pairs)/2)}
	for i := 0; i < len(pairs); i += 2 {
		r.columns = append(r.columns, pairs[i])
		r.values[pairs[i]] = pairs[i+1]
	}
	return r
}

// Set adds or overwrites a single column, appending it if new.
func (r *Row) Set(column, value string) {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	if r.values == nil {
		r.values = make(map[string]string)
	}
	r.values[column] = value
}

// Render writes rows to w in the requested Output format. An empty rows
// slice still renders a well-formed (if columnless) result.
func Render(w io.Writer, out Output, rows []Row) error {
	switch out {
	case CSV:
		return renderCSV(w, rows)
	case JSON:
		return renderJSON(w, rows)
	case Table, "":
		return renderTable(w, rows)
	default:
		return fmt.Errorf("format: unknown output mode %q", out)
	}
}

func renderTable(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}

	columns := rows[0].columns
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, columns)
	for _, r := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			line[i] = r.values[c]
		}
		data = append(data, line)
	}

	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
}

func renderCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if len(rows) == 0 {
		return nil
	}
	columns := rows[0].columns
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			line[i] = r.values[c]
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	return cw.Error()
}

func renderJSON(w io.Writer, rows []Row) error {
	type ordered struct {
		Columns []string          `json:"columns"`
		Values  map[string]string `json:"values"`
	}
	out := make([]ordered, len(rows))
	for i, r := range rows {
		out[i] = ordered{Columns: r.columns, Values: r.values}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
