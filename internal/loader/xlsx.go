package loader

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/kvirves/rik-screener/internal/table"
)

// ReadXLSX reads one sheet of an XLSX workbook into a table. An empty
// sheet name selects the first sheet. The first row is the header.
func ReadXLSX(path, sheetName string) (*table.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("loader: sheet %q not found in %s", sheetName, path)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("loader: %s has no sheets", path)
		}
		sheet = f.Sheets[0]
	}

	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("loader: sheet %q in %s is empty", sheet.Name, path)
	}

	header := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		header[i] = cell.String()
	}
	t, err := table.New(header...)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: header of %s", path)
	}

	for _, row := range sheet.Rows[1:] {
		vals := make([]table.Value, 0, len(header))
		for i, cell := range row.Cells {
			if i >= len(header) {
				break
			}
			vals = append(vals, table.Text(cell.String()))
		}
		if err := t.AppendRow(vals...); err != nil {
			return nil, eris.Wrapf(err, "loader: append row of %s", path)
		}
	}
	return t, nil
}

// WriteXLSX writes a table as a single-sheet XLSX workbook. Numeric
// values are written as numbers so spreadsheet formulas work on them.
func WriteXLSX(t *table.Table, path, sheetName string) error {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "loader: add sheet %q", sheetName)
	}

	cols := t.Columns()
	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c)
	}
	for row := 0; row < t.Len(); row++ {
		r := sheet.AddRow()
		for _, c := range cols {
			v := t.At(row, c)
			cell := r.AddCell()
			if v.Kind() == table.KindNumber {
				if num, ok := v.Float(); ok {
					cell.SetFloat(num)
					continue
				}
			}
			cell.SetString(v.String())
		}
	}

	return eris.Wrapf(f.Save(path), "loader: save %s", path)
}
