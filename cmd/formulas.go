package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kvirves/rik-screener/internal/formula"
)

var formulasCmd = &cobra.Command{
	Use:   "formulas",
	Short: "List the built-in ratio formulas",
	Long: `Formulas lists the built-in formula families, or with --years expands them
into the concrete year-suffixed expressions the ratios and screen commands
would evaluate.

Examples:
  screener formulas
  screener formulas --years 2023,2022,2021
  screener formulas --years 2023,2022 --no-averaging`,
	RunE: runFormulas,
}

func init() {
	f := formulasCmd.Flags()
	f.String("years", "", "expand formulas for these comma-separated years")
	f.Bool("no-averaging", false, "use single-year denominators instead of two-year averages")

	rootCmd.AddCommand(formulasCmd)
}

func runFormulas(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	yearsStr, _ := f.GetString("years")
	noAveraging, _ := f.GetBool("no-averaging")
	out := cmd.OutOrStdout()

	if yearsStr == "" {
		for _, name := range formula.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	years, err := parseYears(yearsStr)
	if err != nil {
		return err
	}

	set := formula.Set{}
	for _, name := range formula.Names() {
		expanded, err := formula.Expand(name, formula.Params{Years: years, Averaging: !noAveraging})
		if err != nil {
			// Growth families need more years than given; skip them.
			continue
		}
		for col, expr := range expanded {
			set[col] = expr
		}
	}

	cols := make([]string, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, col := range cols {
		fmt.Fprintf(tw, "%s\t%s\n", col, set[col])
	}
	return tw.Flush()
}
