// Package loader holds the thin I/O adapters around the screening core:
// CSV and XLSX readers that produce tables, and writers for export. The
// core stages never touch files themselves.
package loader

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/kvirves/rik-screener/internal/table"
)

// CSVOptions configures a CSV read.
type CSVOptions struct {
	Delimiter rune // default ','
	// Charset names the source encoding (e.g. "windows-1257"); registry
	// dumps are not always UTF-8. Empty means UTF-8.
	Charset   string
	TrimSpace bool
}

// ReadCSV parses a CSV file into a table. The first row is the header;
// empty cells become Absent, numeric cells stay textual and coerce
// lazily via Value.Float.
func ReadCSV(path string, opts CSVOptions) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if opts.Charset != "" {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: unsupported charset %q", opts.Charset)
		}
		r = enc.NewDecoder().Reader(f)
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.Errorf("loader: %s is empty", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read header of %s", path)
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF") // strip BOM
	if opts.TrimSpace {
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
	}

	t, err := table.New(header...)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: header of %s", path)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read row of %s", path)
		}
		row := make([]table.Value, 0, len(record))
		for _, field := range record {
			if opts.TrimSpace {
				field = strings.TrimSpace(field)
			}
			row = append(row, table.Text(field))
		}
		if len(row) > len(header) {
			row = row[:len(header)]
		}
		if err := t.AppendRow(row...); err != nil {
			return nil, eris.Wrapf(err, "loader: append row of %s", path)
		}
	}
	return t, nil
}

// WriteOptions configures a CSV write.
type WriteOptions struct {
	Delimiter rune
	// BOM prefixes a UTF-8 byte order mark so spreadsheet tools pick up
	// the encoding (the utf-8-sig convention).
	BOM bool
}

// WriteCSV writes a table as CSV. Absent values render as empty cells.
func WriteCSV(t *table.Table, path string, opts WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "loader: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if opts.BOM {
		if _, err := f.WriteString("\uFEFF"); err != nil {
			return eris.Wrapf(err, "loader: write BOM to %s", path)
		}
	}

	w := csv.NewWriter(f)
	if opts.Delimiter != 0 {
		w.Comma = opts.Delimiter
	}
	cols := t.Columns()
	if err := w.Write(cols); err != nil {
		return eris.Wrapf(err, "loader: write header to %s", path)
	}
	record := make([]string, len(cols))
	for row := 0; row < t.Len(); row++ {
		for i, c := range cols {
			record[i] = t.At(row, c).String()
		}
		if err := w.Write(record); err != nil {
			return eris.Wrapf(err, "loader: write row to %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "loader: flush %s", path)
	}
	return f.Close()
}
