// Package scoring maps computed ratio columns through ordered threshold
// rules into an additive per-row score.
package scoring

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kvirves/rik-screener/internal/table"
)

// DefaultScoreColumn is the total-score column appended by Score.
const DefaultScoreColumn = "score"

// Rule awards Points when a value satisfies its bound. Exactly one of
// Min (value >= Min) or Max (value <= Max) must be set.
type Rule struct {
	Min    *float64 `yaml:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty"`
	Points float64  `yaml:"points"`
}

// Metric is the ordered rule set for one scored column.
type Metric struct {
	Thresholds []Rule `yaml:"thresholds"`
	// AutoSort orders rules most-points-first before matching, so the
	// best satisfied tier wins regardless of how the config lists them.
	// Defaults to true; set false to match in configured order.
	AutoSort *bool `yaml:"auto_sort"`
}

func (m Metric) autoSort() bool {
	return m.AutoSort == nil || *m.AutoSort
}

// Config maps scored column names to their rule sets.
type Config map[string]Metric

// Options controls scoring output.
type Options struct {
	// ScoreColumn overrides the total column name; default "score".
	ScoreColumn string
	// Audit additionally appends a <metric>_points column per scored
	// metric.
	Audit bool
}

// Score appends the total score column (and audit columns when
// requested) to a copy of the table. Per metric the first matching rule
// wins; rows whose value is absent or non-numeric get zero points for
// that metric and are never dropped. The config is validated before any
// row is touched.
func Score(t *table.Table, cfg Config, opts Options) (*table.Table, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	scoreCol := opts.ScoreColumn
	if scoreCol == "" {
		scoreCol = DefaultScoreColumn
	}

	totals := make([]float64, t.Len())
	out := t.Clone()

	for _, metric := range sortedMetrics(cfg) {
		mc := cfg[metric]
		if !t.HasColumn(metric) {
			zap.L().Warn("scoring: metric column not in table, skipping",
				zap.String("metric", metric))
			continue
		}
		rules := mc.Thresholds
		if mc.autoSort() {
			rules = sortRules(rules)
		}

		points := make([]table.Value, t.Len())
		scored := 0
		for row := 0; row < t.Len(); row++ {
			p := award(t.At(row, metric), rules)
			points[row] = table.Number(p)
			totals[row] += p
			if p > 0 {
				scored++
			}
		}
		if opts.Audit {
			if err := out.AddColumn(metric+"_points", points); err != nil {
				return nil, err
			}
		}
		zap.L().Info("scoring: applied metric",
			zap.String("metric", metric),
			zap.Int("scored", scored),
			zap.Int("rows", t.Len()),
		)
	}

	vals := make([]table.Value, t.Len())
	for i, f := range totals {
		vals[i] = table.Number(f)
	}
	if err := out.AddColumn(scoreCol, vals); err != nil {
		return nil, err
	}
	return out, nil
}

// award returns the points of the first rule the value satisfies.
func award(v table.Value, rules []Rule) float64 {
	f, ok := v.Float()
	if !ok {
		return 0
	}
	for _, r := range rules {
		switch {
		case r.Min != nil && f >= *r.Min:
			return r.Points
		case r.Max != nil && f <= *r.Max:
			return r.Points
		}
	}
	return 0
}

// sortRules orders rules by descending points so the most generous
// satisfied tier wins under first-match; equal points fall back to
// highest-minimum-first for min-rules and lowest-maximum-first for
// max-rules, with min-rules before max-rules.
func sortRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := out[a], out[b]
		if ra.Points != rb.Points {
			return ra.Points > rb.Points
		}
		switch {
		case ra.Min != nil && rb.Min != nil:
			return *ra.Min > *rb.Min
		case ra.Max != nil && rb.Max != nil:
			return *ra.Max < *rb.Max
		default:
			return ra.Min != nil && rb.Max != nil
		}
	})
	return out
}

func sortedMetrics(cfg Config) []string {
	names := make([]string, 0, len(cfg))
	for n := range cfg {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MaxPoints returns the highest points awardable across all metrics,
// the ceiling a perfect row could score.
func MaxPoints(cfg Config) float64 {
	var total float64
	for _, mc := range cfg {
		var best float64
		for _, r := range mc.Thresholds {
			if r.Points > best {
				best = r.Points
			}
		}
		total += best
	}
	return total
}

func fmtBound(r Rule) string {
	if r.Min != nil {
		return fmt.Sprintf("min=%g", *r.Min)
	}
	if r.Max != nil {
		return fmt.Sprintf("max=%g", *r.Max)
	}
	return "unbounded"
}
