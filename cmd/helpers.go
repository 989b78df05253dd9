package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/kvirves/rik-screener/internal/loader"
	"github.com/kvirves/rik-screener/internal/rank"
	"github.com/kvirves/rik-screener/internal/table"
)

// parseYears parses a comma-separated year list like "2023,2022,2021".
func parseYears(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, eris.New("no years given")
	}
	var years []int
	for _, part := range strings.Split(s, ",") {
		y, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, eris.Errorf("bad year %q", part)
		}
		years = append(years, y)
	}
	return years, nil
}

// parseList parses a comma-separated string list, dropping empties.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseFilters parses repeatable --filter flags of the form
// "column:min=X" or "column:max=X".
func parseFilters(specs []string) ([]rank.Filter, error) {
	var filters []rank.Filter
	for _, spec := range specs {
		i := strings.LastIndex(spec, ":")
		if i <= 0 {
			return nil, eris.Errorf("bad --filter %q, want column:min=X or column:max=X", spec)
		}
		col, bound := spec[:i], spec[i+1:]
		kind, raw, ok := strings.Cut(bound, "=")
		if !ok {
			return nil, eris.Errorf("bad --filter %q, want column:min=X or column:max=X", spec)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, eris.Errorf("bad --filter %q: %q is not a number", spec, raw)
		}
		f := rank.Filter{Column: col}
		switch strings.TrimSpace(kind) {
		case "min":
			f.Min = &v
		case "max":
			f.Max = &v
		default:
			return nil, eris.Errorf("bad --filter %q, bound must be min or max", spec)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// readTable reads a CSV or XLSX file based on its extension.
func readTable(path, charset string) (*table.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loader.ReadXLSX(path, "")
	}
	return loader.ReadCSV(path, loader.CSVOptions{Charset: charset, TrimSpace: true})
}

// writeTable writes a table to a CSV or XLSX file based on extension, or
// pretty-prints it to stdout when path is empty.
func writeTable(t *table.Table, path string) error {
	if path == "" {
		return printTable(os.Stdout, t, 50)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loader.WriteXLSX(t, path, "")
	}
	return loader.WriteCSV(t, path, loader.WriteOptions{BOM: true})
}

// printTable renders up to maxRows rows as an aligned text table.
func printTable(w io.Writer, t *table.Table, maxRows int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	cols := t.Columns()
	fmt.Fprintln(tw, strings.Join(cols, "\t"))

	n := t.Len()
	truncated := false
	if maxRows > 0 && n > maxRows {
		n = maxRows
		truncated = true
	}
	for row := 0; row < n; row++ {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = t.At(row, c).String()
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "print table")
	}
	if truncated {
		fmt.Fprintf(w, "... %d more rows\n", t.Len()-n)
	}
	return nil
}
