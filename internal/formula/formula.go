package formula

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kvirves/rik-screener/internal/table"
)

// Set maps output column names to expression strings.
type Set map[string]string

// FormulaError reports a formula that cannot be evaluated against the
// table schema at all: a parse failure, a reference to a column that no
// row has, or an output-name collision. It is fatal for that formula but
// must not abort the others.
type FormulaError struct {
	Name    string
	Missing []string
	Cause   error
}

func (e *FormulaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("formula %q references missing columns: %s", e.Name, strings.Join(e.Missing, ", "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("formula %q: %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("formula %q is invalid", e.Name)
}

func (e *FormulaError) Unwrap() error { return e.Cause }

// Compile parses every formula in the set and checks its column
// references against the table schema. Invalid formulas come back as
// *FormulaError values; the valid remainder is returned compiled.
func Compile(set Set, t *table.Table) (map[string]*Parsed, []error) {
	compiled := make(map[string]*Parsed, len(set))
	var errs []error
	for _, name := range sortedNames(set) {
		p, err := Parse(set[name])
		if err != nil {
			errs = append(errs, &FormulaError{Name: name, Cause: err})
			continue
		}
		var missing []string
		for _, col := range p.Columns() {
			if !t.HasColumn(col) {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			errs = append(errs, &FormulaError{Name: name, Missing: missing})
			continue
		}
		if t.HasColumn(name) {
			errs = append(errs, &FormulaError{Name: name, Cause: eris.Errorf("output column %q already exists", name)})
			continue
		}
		compiled[name] = p
	}
	return compiled, errs
}

// Apply evaluates the formula set and returns a new table with one
// appended column per valid formula. Input columns are never modified.
// Formulas that fail schema validation are reported as errors while the
// rest still run; per-row anomalies are absorbed as Absent values.
func Apply(t *table.Table, set Set) (*table.Table, []error) {
	compiled, errs := Compile(set, t)
	for _, err := range errs {
		zap.L().Warn("formula: skipping invalid formula", zap.Error(err))
	}

	out := t.Clone()
	for _, name := range sortedKeys(compiled) {
		p := compiled[name]
		vals := make([]table.Value, t.Len())
		absent := 0
		for row := 0; row < t.Len(); row++ {
			vals[row] = p.Eval(t, row)
			if vals[row].IsAbsent() {
				absent++
			}
		}
		if err := out.AddColumn(name, vals); err != nil {
			errs = append(errs, &FormulaError{Name: name, Cause: err})
			continue
		}
		zap.L().Info("formula: calculated column",
			zap.String("column", name),
			zap.Int("rows", t.Len()),
			zap.Int("absent", absent),
		)
	}
	return out, errs
}

func sortedNames(set Set) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(m map[string]*Parsed) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
