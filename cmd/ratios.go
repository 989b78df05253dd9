package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kvirves/rik-screener/internal/formula"
)

var ratiosCmd = &cobra.Command{
	Use:   "ratios",
	Short: "Compute financial ratio columns on a merged table",
	Long: `Ratios evaluates built-in and custom formulas against a merged table and
appends one column per formula.

Custom formulas reference quoted, year-suffixed column names:
  --formula 'ebitda_2023=("Ärikasum (kahjum)_2023" + abs("Põhivarade kulum ja väärtuse langus_2023"))'

Examples:
  # The full built-in ratio library for three years
  screener ratios --input merged.csv --years 2023,2022,2021 --standard --output ratios.csv

  # A single custom ratio
  screener ratios --input merged.csv --years 2023 \
    --formula 'labour_share_2023=-("Tööjõukulud_2023") / "Müügitulu_2023"' \
    --output ratios.csv`,
	RunE: runRatios,
}

func init() {
	f := ratiosCmd.Flags()
	f.String("input", "", "merged input table (.csv or .xlsx, required)")
	f.String("years", "", "comma-separated years the table covers (required)")
	f.Bool("standard", false, "include the full built-in ratio library")
	f.StringArray("formula", nil, "custom formula as name=expression (repeatable)")
	f.Bool("flag-vehicles", true, "flag investment vehicles and blank their revenue ratios")
	f.String("output", "", "output file (.csv or .xlsx, default: stdout)")
	_ = ratiosCmd.MarkFlagRequired("input")
	_ = ratiosCmd.MarkFlagRequired("years")

	rootCmd.AddCommand(ratiosCmd)
}

func runRatios(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	input, _ := f.GetString("input")
	yearsStr, _ := f.GetString("years")
	standard, _ := f.GetBool("standard")
	customs, _ := f.GetStringArray("formula")
	flagVehicles, _ := f.GetBool("flag-vehicles")
	output, _ := f.GetString("output")

	years, err := parseYears(yearsStr)
	if err != nil {
		return err
	}

	set := formula.Set{}
	if standard {
		set = formula.Standard(years)
	}
	for _, c := range customs {
		name, expr, ok := strings.Cut(c, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return eris.Errorf("ratios: bad --formula %q, want name=expression", c)
		}
		set[strings.TrimSpace(name)] = expr
	}
	if len(set) == 0 {
		return eris.New("ratios: nothing to compute, pass --standard or --formula")
	}

	t, err := readTable(input, cfg.Input.Charset)
	if err != nil {
		return err
	}

	out, errs := formula.Apply(t, set)
	for _, e := range errs {
		zap.L().Warn("ratios: formula skipped", zap.Error(e))
	}
	if len(errs) == len(set) {
		return eris.New("ratios: every formula failed validation")
	}
	if flagVehicles {
		out = formula.FlagVehicles(out, years, set)
	}

	return writeTable(out, output)
}
