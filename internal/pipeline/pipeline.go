package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kvirves/rik-screener/internal/config"
	"github.com/kvirves/rik-screener/internal/formula"
	"github.com/kvirves/rik-screener/internal/loader"
	"github.com/kvirves/rik-screener/internal/merge"
	"github.com/kvirves/rik-screener/internal/rank"
	"github.com/kvirves/rik-screener/internal/scoring"
	"github.com/kvirves/rik-screener/internal/store"
	"github.com/kvirves/rik-screener/internal/table"
)

// Source yields the per-year input datasets.
type Source interface {
	Dataset(ctx context.Context, year int) (*table.Table, error)
}

// DirSource loads per-year CSV files from a directory.
type DirSource struct {
	Dir string
	// Pattern is the file name with %d substituted by the year.
	Pattern string
	// Charset names the CSV encoding; empty means UTF-8.
	Charset   string
	Delimiter rune
}

// NewDirSource builds a DirSource from the application input config.
func NewDirSource(dataDir string, in config.InputConfig) *DirSource {
	s := &DirSource{Dir: dataDir, Pattern: in.Pattern, Charset: in.Charset}
	if in.Delimiter != "" {
		s.Delimiter = []rune(in.Delimiter)[0]
	}
	return s
}

func (s *DirSource) Dataset(_ context.Context, year int) (*table.Table, error) {
	pattern := s.Pattern
	if pattern == "" {
		pattern = "companies_%d.csv"
	}
	path := filepath.Join(s.Dir, fmt.Sprintf(pattern, year))
	return loader.ReadCSV(path, loader.CSVOptions{
		Delimiter: s.Delimiter,
		Charset:   s.Charset,
		TrimSpace: true,
	})
}

// Result is a completed screening run.
type Result struct {
	Table *table.Table
	RunID string
	// FormulaErrors lists formulas skipped for schema problems; they do
	// not fail the run.
	FormulaErrors []error
	Summary       Summary
}

// Summary is the run's headline numbers.
type Summary struct {
	Years    []int
	Merged   int
	Final    int
	Duration time.Duration
}

// Screener executes screening profiles against a dataset source,
// optionally recording runs in a store.
type Screener struct {
	src Source
	st  store.Store // nil disables persistence
}

// New creates a Screener. Pass a nil store to skip run persistence.
func New(src Source, st store.Store) *Screener {
	return &Screener{src: src, st: st}
}

// Run executes the full screening flow for one profile. Configuration
// and schema problems fail fast before any output; per-row data gaps are
// absorbed into absent values along the way.
func (s *Screener) Run(ctx context.Context, p *Profile) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("profile", p.Name))

	// Validate everything declarative before touching data.
	if err := p.Validate(); err != nil {
		return nil, err
	}
	set, err := p.FormulaSet()
	if err != nil {
		return nil, err
	}

	var runID string
	if s.st != nil {
		run, err := s.st.CreateRun(ctx, p.Name, p.Years)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
	}
	fail := func(cause error) (*Result, error) {
		if s.st != nil {
			if ferr := s.st.FailRun(ctx, runID, cause); ferr != nil {
				log.Warn("pipeline: could not record failed run", zap.Error(ferr))
			}
		}
		return nil, cause
	}

	datasets, err := s.loadDatasets(ctx, p.Years)
	if err != nil {
		return fail(err)
	}

	merged, err := merge.Merge(datasets, merge.Options{
		LegalForms:      p.LegalForms,
		RequireAllYears: p.RequireAllYears,
		EmptyIsError:    p.FailOnEmpty,
	})
	if err != nil {
		return fail(err)
	}

	withRatios, formulaErrs := formula.Apply(merged, set)
	if p.FlagVehicles {
		withRatios = formula.FlagVehicles(withRatios, p.Years, set)
	}

	scored, err := scoring.Score(withRatios, p.Scoring, scoring.Options{Audit: p.AuditScores})
	if err != nil {
		return fail(err)
	}

	// Export columns are projected after persistence so store rows keep
	// the company code and score even when the profile omits them.
	ranked, err := rank.Rank(scored, rank.Options{
		Filters:    p.Filters,
		SortColumn: p.SortColumn,
		Ascending:  p.Ascending,
		TopN:       p.TopN,
	})
	if err != nil {
		return fail(err)
	}

	if s.st != nil {
		if err := s.st.SaveResults(ctx, runID, resultRows(ranked)); err != nil {
			return fail(eris.Wrap(err, "pipeline: save results"))
		}
		if err := s.st.CompleteRun(ctx, runID, merged.Len(), ranked.Len()); err != nil {
			return fail(eris.Wrap(err, "pipeline: complete run"))
		}
	}

	final := ranked
	if len(p.ExportColumns) > 0 {
		final, err = rank.Project(ranked, p.ExportColumns)
		if err != nil {
			return fail(err)
		}
	}

	res := &Result{
		Table:         final,
		RunID:         runID,
		FormulaErrors: formulaErrs,
		Summary: Summary{
			Years:    p.Years,
			Merged:   merged.Len(),
			Final:    final.Len(),
			Duration: time.Since(start),
		},
	}
	log.Info("pipeline: screening run complete",
		zap.Ints("years", p.Years),
		zap.Int("merged", merged.Len()),
		zap.Int("final", final.Len()),
		zap.Int("formula_errors", len(formulaErrs)),
		zap.Float64("max_points", scoring.MaxPoints(p.Scoring)),
		zap.Duration("duration", res.Summary.Duration),
	)
	return res, nil
}

// loadDatasets fetches the per-year inputs concurrently. The stages
// themselves stay synchronous; only this I/O fan-out is parallel.
func (s *Screener) loadDatasets(ctx context.Context, years []int) (map[int]*table.Table, error) {
	var mu sync.Mutex
	datasets := make(map[int]*table.Table, len(years))

	g, gctx := errgroup.WithContext(ctx)
	for _, year := range years {
		g.Go(func() error {
			t, err := s.src.Dataset(gctx, year)
			if err != nil {
				return eris.Wrapf(err, "pipeline: load year %d", year)
			}
			mu.Lock()
			datasets[year] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return datasets, nil
}

// resultRows converts the ranked table into store rows. The payload
// keeps every column so past runs stay inspectable regardless of the
// profile's export selection.
func resultRows(t *table.Table) []store.ResultRow {
	cols := t.Columns()
	rows := make([]store.ResultRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := store.ResultRow{
			Rank:        i + 1,
			CompanyCode: t.At(i, merge.DefaultIDColumn).String(),
			Payload:     make(map[string]any, len(cols)),
		}
		if f, ok := t.At(i, scoring.DefaultScoreColumn).Float(); ok {
			r.Score = f
		}
		for _, c := range cols {
			v := t.At(i, c)
			if v.IsAbsent() {
				continue
			}
			if f, ok := v.Float(); ok && v.Kind() == table.KindNumber {
				r.Payload[c] = f
			} else {
				r.Payload[c] = v.String()
			}
		}
		rows = append(rows, r)
	}
	return rows
}
