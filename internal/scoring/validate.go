package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ConfigError reports a malformed threshold configuration. It is raised
// at validation time, before any row processing.
type ConfigError struct {
	Metric string
	Index  int // threshold index, -1 for metric-level problems
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("scoring: metric %q: %s", e.Metric, e.Reason)
	}
	return fmt.Sprintf("scoring: metric %q threshold %d: %s", e.Metric, e.Index, e.Reason)
}

// Validate checks the whole scoring configuration and returns every
// problem found joined into one error. Each joined entry is a
// *ConfigError, so callers can inspect them with errors.As.
func Validate(cfg Config) error {
	var errs []error
	for _, metric := range sortedMetrics(cfg) {
		mc := cfg[metric]
		if len(mc.Thresholds) == 0 {
			errs = append(errs, &ConfigError{Metric: metric, Index: -1, Reason: "no thresholds"})
			continue
		}
		seenMin := make(map[float64]struct{})
		seenMax := make(map[float64]struct{})
		for i, r := range mc.Thresholds {
			switch {
			case r.Min == nil && r.Max == nil:
				errs = append(errs, &ConfigError{Metric: metric, Index: i, Reason: "needs a min or max bound"})
			case r.Min != nil && r.Max != nil:
				errs = append(errs, &ConfigError{Metric: metric, Index: i, Reason: "cannot have both min and max bounds"})
			case r.Min != nil:
				if !isFinite(*r.Min) {
					errs = append(errs, &ConfigError{Metric: metric, Index: i, Reason: "min must be a finite number"})
					break
				}
				if _, dup := seenMin[*r.Min]; dup {
					errs = append(errs, &ConfigError{Metric: metric, Index: i,
						Reason: fmt.Sprintf("duplicate bound %s makes the winning rule ambiguous", fmtBound(r))})
				}
				seenMin[*r.Min] = struct{}{}
			default:
				if !isFinite(*r.Max) {
					errs = append(errs, &ConfigError{Metric: metric, Index: i, Reason: "max must be a finite number"})
					break
				}
				if _, dup := seenMax[*r.Max]; dup {
					errs = append(errs, &ConfigError{Metric: metric, Index: i,
						Reason: fmt.Sprintf("duplicate bound %s makes the winning rule ambiguous", fmtBound(r))})
				}
				seenMax[*r.Max] = struct{}{}
			}
			if !isFinite(r.Points) || r.Points < 0 {
				errs = append(errs, &ConfigError{Metric: metric, Index: i, Reason: "points must be a non-negative number"})
			}
		}
	}
	return errors.Join(errs...)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
