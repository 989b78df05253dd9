// Package merge aligns per-year company datasets into one wide table with
// a single row per entity and year-suffixed metric columns.
package merge

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kvirves/rik-screener/internal/table"
)

// DefaultIDColumn is the entity identifier used by registry datasets.
const DefaultIDColumn = "company_code"

// DefaultLegalFormColumn carries the legal-form code in registry datasets.
const DefaultLegalFormColumn = "legal_form"

// SchemaError reports a year dataset that is structurally unusable.
type SchemaError struct {
	Year   int
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("merge: year %d dataset missing column %q", e.Year, e.Column)
}

// ErrEmptyResult is returned when no entities survive the merge and the
// caller opted in to treating that as fatal.
var ErrEmptyResult = eris.New("merge: no entities in merged result")

// Options controls a merge.
type Options struct {
	// IDColumn is the entity identifier column; defaults to company_code.
	IDColumn string
	// LegalForms restricts the entity universe to the listed legal-form
	// codes. Empty means no restriction.
	LegalForms []string
	// LegalFormColumn names the legal-form attribute; defaults to legal_form.
	LegalFormColumn string
	// RequireAllYears keeps only entities present in every requested year
	// (intersection) instead of the default outer-join union.
	RequireAllYears bool
	// EmptyIsError makes an empty merged result fatal.
	EmptyIsError bool
}

func (o *Options) fillDefaults() {
	if o.IDColumn == "" {
		o.IDColumn = DefaultIDColumn
	}
	if o.LegalFormColumn == "" {
		o.LegalFormColumn = DefaultLegalFormColumn
	}
}

// Merge outer-joins the per-year datasets on the entity identifier. Every
// non-identifier column of year Y appears in the output as <column>_Y.
// Entities absent from a year carry Absent values for that year's columns.
// The input tables are not modified.
func Merge(datasets map[int]*table.Table, opts Options) (*table.Table, error) {
	opts.fillDefaults()
	if len(datasets) == 0 {
		return nil, eris.New("merge: no datasets given")
	}

	years := make([]int, 0, len(datasets))
	for y := range datasets {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	for _, y := range years {
		t := datasets[y]
		if !t.HasColumn(opts.IDColumn) {
			return nil, &SchemaError{Year: y, Column: opts.IDColumn}
		}
		if len(opts.LegalForms) > 0 && !t.HasColumn(opts.LegalFormColumn) {
			return nil, &SchemaError{Year: y, Column: opts.LegalFormColumn}
		}
	}

	// The legal-form restriction is applied once, to each year's row set,
	// before the join. Numeric columns pass through untouched.
	filtered := make(map[int]*table.Table, len(datasets))
	for _, y := range years {
		filtered[y] = applyLegalForms(datasets[y], opts)
	}

	// Row lookup per year, first occurrence wins on duplicate identifiers.
	type yearIndex struct {
		byID map[string]int
	}
	indexes := make(map[int]yearIndex, len(years))
	for _, y := range years {
		t := filtered[y]
		idx := yearIndex{byID: make(map[string]int, t.Len())}
		for i := 0; i < t.Len(); i++ {
			id := t.At(i, opts.IDColumn).String()
			if id == "" {
				continue
			}
			if _, dup := idx.byID[id]; dup {
				zap.L().Warn("merge: duplicate entity in year dataset",
					zap.Int("year", y), zap.String("id", id))
				continue
			}
			idx.byID[id] = i
		}
		indexes[y] = idx
	}

	// Entity universe: union in first-seen order, or intersection when
	// every year is required.
	var ids []string
	seen := make(map[string]int)
	for _, y := range years {
		t := filtered[y]
		for i := 0; i < t.Len(); i++ {
			id := t.At(i, opts.IDColumn).String()
			if id == "" {
				continue
			}
			if _, ok := seen[id]; !ok {
				seen[id] = 0
				ids = append(ids, id)
			}
			seen[id]++
		}
	}
	if opts.RequireAllYears {
		kept := ids[:0]
		for _, id := range ids {
			present := 0
			for _, y := range years {
				if _, ok := indexes[y].byID[id]; ok {
					present++
				}
			}
			if present == len(years) {
				kept = append(kept, id)
			}
		}
		ids = kept
	}

	cols := []string{opts.IDColumn}
	type colRef struct {
		year int
		src  string
	}
	var refs []colRef
	for _, y := range years {
		for _, c := range filtered[y].Columns() {
			if c == opts.IDColumn {
				continue
			}
			cols = append(cols, table.ColumnName(c, y))
			refs = append(refs, colRef{year: y, src: c})
		}
	}

	out, err := table.New(cols...)
	if err != nil {
		return nil, eris.Wrap(err, "merge: build output schema")
	}
	for _, id := range ids {
		row := make([]table.Value, 0, len(cols))
		row = append(row, table.Text(id))
		for _, ref := range refs {
			if ri, ok := indexes[ref.year].byID[id]; ok {
				row = append(row, filtered[ref.year].At(ri, ref.src))
			} else {
				row = append(row, table.Absent)
			}
		}
		if err := out.AppendRow(row...); err != nil {
			return nil, eris.Wrap(err, "merge: append row")
		}
	}

	zap.L().Info("merge: merged year datasets",
		zap.Ints("years", years),
		zap.Int("entities", out.Len()),
		zap.Int("columns", len(cols)),
		zap.Bool("require_all_years", opts.RequireAllYears),
	)

	if out.Len() == 0 && opts.EmptyIsError {
		return nil, ErrEmptyResult
	}
	return out, nil
}

func applyLegalForms(t *table.Table, opts Options) *table.Table {
	if len(opts.LegalForms) == 0 {
		return t
	}
	allowed := make(map[string]struct{}, len(opts.LegalForms))
	for _, f := range opts.LegalForms {
		allowed[f] = struct{}{}
	}
	return t.Filter(func(row int) bool {
		_, ok := allowed[t.At(row, opts.LegalFormColumn).String()]
		return ok
	})
}
