package table

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Table is an ordered-column, row-major table. Columns are append-only:
// stages add derived columns but never rewrite the ones they received.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]Value
}

// New creates an empty table with the given column order.
func New(cols ...string) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if c == "" {
			return nil, eris.New("table: empty column name")
		}
		if _, dup := t.index[c]; dup {
			return nil, eris.Errorf("table: duplicate column %q", c)
		}
		t.index[c] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// AppendRow adds a row. Short rows are padded with Absent; long rows error.
func (t *Table) AppendRow(vals ...Value) error {
	if len(vals) > len(t.cols) {
		return eris.Errorf("table: row has %d values, table has %d columns", len(vals), len(t.cols))
	}
	row := make([]Value, len(t.cols))
	copy(row, vals)
	t.rows = append(t.rows, row)
	return nil
}

// At returns the value at a row and column. Unknown columns and
// out-of-range rows read as Absent.
func (t *Table) At(row int, col string) Value {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.rows) {
		return Absent
	}
	return t.rows[row][i]
}

// Set overwrites a single cell. Used by stages while assembling their own
// output copy; received tables are never mutated.
func (t *Table) Set(row int, col string, v Value) error {
	i, ok := t.index[col]
	if !ok {
		return eris.Errorf("table: unknown column %q", col)
	}
	if row < 0 || row >= len(t.rows) {
		return eris.Errorf("table: row %d out of range", row)
	}
	t.rows[row][i] = v
	return nil
}

// AddColumn appends a new column with one value per existing row.
func (t *Table) AddColumn(name string, vals []Value) error {
	if name == "" {
		return eris.New("table: empty column name")
	}
	if _, dup := t.index[name]; dup {
		return eris.Errorf("table: column %q already exists", name)
	}
	if len(vals) != len(t.rows) {
		return eris.Errorf("table: column %q has %d values, table has %d rows", name, len(vals), len(t.rows))
	}
	t.index[name] = len(t.cols)
	t.cols = append(t.cols, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], vals[i])
	}
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out, _ := New(t.cols...)
	out.rows = make([][]Value, len(t.rows))
	for i, r := range t.rows {
		row := make([]Value, len(r))
		copy(row, r)
		out.rows[i] = row
	}
	return out
}

// Filter returns a new table keeping rows for which keep returns true.
// Row order is preserved.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out, _ := New(t.cols...)
	for i := range t.rows {
		if keep(i) {
			row := make([]Value, len(t.rows[i]))
			copy(row, t.rows[i])
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// SortBy returns a new table sorted by the named column. The sort is
// stable; absent and non-numeric values order after everything else
// regardless of direction. Keys compare numerically when both coerce,
// lexically otherwise.
func (t *Table) SortBy(col string, ascending bool) (*Table, error) {
	if !t.HasColumn(col) {
		return nil, eris.Errorf("table: sort column %q not found", col)
	}
	perm := make([]int, len(t.rows))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		va, vb := t.At(perm[a], col), t.At(perm[b], col)
		fa, oka := va.Float()
		fb, okb := vb.Float()
		switch {
		case oka && okb:
			if ascending {
				return fa < fb
			}
			return fa > fb
		case oka:
			return true // valid keys before absent, either direction
		case okb:
			return false
		case !va.IsAbsent() && !vb.IsAbsent():
			if ascending {
				return va.String() < vb.String()
			}
			return va.String() > vb.String()
		case !va.IsAbsent():
			return true
		default:
			return false
		}
	})
	out, _ := New(t.cols...)
	out.rows = make([][]Value, len(t.rows))
	for i, p := range perm {
		row := make([]Value, len(t.rows[p]))
		copy(row, t.rows[p])
		out.rows[i] = row
	}
	return out, nil
}

// Head returns a new table with at most n rows. n past the end returns
// all rows; n <= 0 returns an empty table.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	out, _ := New(t.cols...)
	out.rows = make([][]Value, n)
	for i := 0; i < n; i++ {
		row := make([]Value, len(t.rows[i]))
		copy(row, t.rows[i])
		out.rows[i] = row
	}
	return out
}

// Select returns a new table projected onto the given columns, in the
// given order.
func (t *Table) Select(cols []string) (*Table, error) {
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if !t.HasColumn(c) {
			return nil, eris.Errorf("table: select column %q not found", c)
		}
	}
	out.rows = make([][]Value, len(t.rows))
	for i := range t.rows {
		row := make([]Value, len(cols))
		for j, c := range cols {
			row[j] = t.At(i, c)
		}
		out.rows[i] = row
	}
	return out, nil
}
