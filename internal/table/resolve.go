package table

import "fmt"

// ColumnName returns the year-suffixed column for a logical metric,
// e.g. ColumnName("Müügitulu", 2023) == "Müügitulu_2023".
func ColumnName(metric string, year int) string {
	return fmt.Sprintf("%s_%d", metric, year)
}

// Resolver reads year-suffixed metric values from a merged table,
// signaling absence distinctly from zero.
type Resolver struct {
	t *Table
}

// NewResolver wraps a table.
func NewResolver(t *Table) *Resolver { return &Resolver{t: t} }

// Has reports whether the metric exists in the schema for the given year.
func (r *Resolver) Has(metric string, year int) bool {
	return r.t.HasColumn(ColumnName(metric, year))
}

// Value returns the metric value for one row. Missing columns and missing
// cells both read as Absent.
func (r *Resolver) Value(row int, metric string, year int) Value {
	return r.t.At(row, ColumnName(metric, year))
}

// Float returns the metric coerced to a float, with ok=false when the
// value is absent or not numeric.
func (r *Resolver) Float(row int, metric string, year int) (float64, bool) {
	return r.t.At(row, ColumnName(metric, year)).Float()
}
