// Package pipeline runs the full screening flow — merge, ratios,
// scoring, ranking — from one declarative profile.
package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/kvirves/rik-screener/internal/formula"
	"github.com/kvirves/rik-screener/internal/rank"
	"github.com/kvirves/rik-screener/internal/scoring"
)

// BuiltinParams parameterizes one built-in formula family in a profile.
type BuiltinParams struct {
	Years []int `yaml:"years"`
	// Averaging selects the two-year averaging variant where one exists;
	// defaults to true.
	Averaging *bool `yaml:"averaging"`
}

// Profile is a declarative screening configuration: configuration, not
// code, drives the whole run.
type Profile struct {
	Name            string   `yaml:"name"`
	Years           []int    `yaml:"years"`
	LegalForms      []string `yaml:"legal_forms"`
	RequireAllYears bool     `yaml:"require_all_years"`
	FailOnEmpty     bool     `yaml:"fail_on_empty"`

	StandardFormulas map[string]BuiltinParams `yaml:"standard_formulas"`
	CustomFormulas   map[string]string        `yaml:"custom_formulas"`
	FlagVehicles     bool                     `yaml:"flag_investment_vehicles"`

	Scoring     scoring.Config `yaml:"scoring"`
	AuditScores bool           `yaml:"audit_scores"`

	Filters       []rank.Filter `yaml:"filters"`
	SortColumn    string        `yaml:"sort_column"`
	Ascending     bool          `yaml:"ascending"`
	TopN          int           `yaml:"top_n"`
	ExportColumns []string      `yaml:"export_columns"`
}

// LoadProfile reads a screen profile from a YAML file. The file carries a
// top-level "screen" key.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read profile %s", path)
	}

	var wrapper struct {
		Screen Profile `yaml:"screen"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse profile %s", path)
	}

	p := &wrapper.Screen
	if p.Name == "" {
		p.Name = path
	}
	if p.SortColumn == "" {
		p.SortColumn = scoring.DefaultScoreColumn
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the profile before any data is loaded, so a bad
// configuration fails fast instead of producing partial output.
func (p *Profile) Validate() error {
	if len(p.Years) == 0 {
		return eris.New("pipeline: profile needs at least one year")
	}
	if p.TopN < 0 {
		return eris.New("pipeline: top_n must be >= 0")
	}
	for name, params := range p.StandardFormulas {
		if _, err := formula.Expand(name, builtinParams(p, params)); err != nil {
			return err
		}
	}
	for name, expr := range p.CustomFormulas {
		if _, err := formula.Parse(expr); err != nil {
			return eris.Wrapf(err, "pipeline: custom formula %q", name)
		}
	}
	if err := scoring.Validate(p.Scoring); err != nil {
		return err
	}
	return nil
}

// FormulaSet expands the profile's standard families and merges in the
// custom formulas. Custom formulas win on name collisions.
func (p *Profile) FormulaSet() (formula.Set, error) {
	set := formula.Set{}
	for name, params := range p.StandardFormulas {
		expanded, err := formula.Expand(name, builtinParams(p, params))
		if err != nil {
			return nil, err
		}
		for col, expr := range expanded {
			set[col] = expr
		}
	}
	for col, expr := range p.CustomFormulas {
		set[col] = expr
	}
	return set, nil
}

func builtinParams(p *Profile, bp BuiltinParams) formula.Params {
	years := bp.Years
	if len(years) == 0 {
		years = p.Years
	}
	averaging := true
	if bp.Averaging != nil {
		averaging = *bp.Averaging
	}
	return formula.Params{Years: years, Averaging: averaging}
}
