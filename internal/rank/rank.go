// Package rank applies filter predicates, sorts, and truncates the
// scored table into the final screening result. It is the only stage
// allowed to drop rows.
package rank

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kvirves/rik-screener/internal/table"
)

// Filter is one conjunctive predicate over a numeric column. A row whose
// value is absent or non-numeric fails the predicate and is excluded.
type Filter struct {
	Column string   `yaml:"column"`
	Min    *float64 `yaml:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty"`
}

// Options controls filtering, ordering, and truncation.
type Options struct {
	Filters    []Filter
	SortColumn string
	// Ascending flips the default descending sort.
	Ascending bool
	// TopN truncates after sorting; 0 keeps all rows, a cap past the row
	// count returns everything.
	TopN int
	// ExportColumns optionally projects the result onto these columns;
	// unknown names are skipped with a warning.
	ExportColumns []string
}

// Rank produces the final ordered subset. Filters apply conjunctively;
// the sort is stable so equal keys keep their pre-sort order, making the
// whole operation deterministic and idempotent.
func Rank(t *table.Table, opts Options) (*table.Table, error) {
	if opts.SortColumn == "" {
		return nil, eris.New("rank: sort column not set")
	}

	out := t
	for _, f := range opts.Filters {
		if !out.HasColumn(f.Column) {
			zap.L().Warn("rank: filter column not in table, skipping",
				zap.String("column", f.Column))
			continue
		}
		before := out.Len()
		out = applyFilter(out, f)
		zap.L().Info("rank: applied filter",
			zap.String("column", f.Column),
			zap.Int("removed", before-out.Len()),
			zap.Int("remaining", out.Len()),
		)
	}

	sorted, err := out.SortBy(opts.SortColumn, opts.Ascending)
	if err != nil {
		return nil, eris.Wrap(err, "rank: sort")
	}
	out = sorted

	if opts.TopN > 0 {
		out = out.Head(opts.TopN)
	}

	if len(opts.ExportColumns) > 0 {
		out, err = Project(out, opts.ExportColumns)
		if err != nil {
			return nil, err
		}
	}

	zap.L().Info("rank: ranked results",
		zap.String("sort_column", opts.SortColumn),
		zap.Bool("ascending", opts.Ascending),
		zap.Int("rows", out.Len()),
	)
	return out, nil
}

// Project narrows the table to the named export columns, keeping their
// given order. Unknown names are skipped with a warning; if none remain
// the table is returned unchanged.
func Project(t *table.Table, cols []string) (*table.Table, error) {
	keep := make([]string, 0, len(cols))
	for _, c := range cols {
		if !t.HasColumn(c) {
			zap.L().Warn("rank: export column not in table, skipping",
				zap.String("column", c))
			continue
		}
		keep = append(keep, c)
	}
	if len(keep) == 0 {
		return t, nil
	}
	out, err := t.Select(keep)
	if err != nil {
		return nil, eris.Wrap(err, "rank: select export columns")
	}
	return out, nil
}

func applyFilter(t *table.Table, f Filter) *table.Table {
	return t.Filter(func(row int) bool {
		v, ok := t.At(row, f.Column).Float()
		if !ok {
			return false
		}
		if f.Min != nil && v < *f.Min {
			return false
		}
		if f.Max != nil && v > *f.Max {
			return false
		}
		return true
	})
}
