package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kvirves/rik-screener/internal/rank"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Filter, sort, and truncate a scored table",
	Long: `Rank drops rows failing the filters, sorts the rest, and keeps the top N.
Filters take the form column:min=X or column:max=X and combine with AND;
a row whose filter column is absent is excluded.

Examples:
  # Top 50 by score with a minimum revenue floor
  screener rank --input scored.csv --filter 'Müügitulu_2023:min=1000000' \
    --top-n 50 --output final.csv

  # Sort ascending by a custom column, export a subset of columns
  screener rank --input scored.csv --sort-by debt_to_equity_2023 --ascending \
    --columns company_code,score,debt_to_equity_2023 --output final.csv`,
	RunE: runRank,
}

func init() {
	f := rankCmd.Flags()
	f.String("input", "", "scored input table (.csv or .xlsx, required)")
	f.StringArray("filter", nil, "filter as column:min=X or column:max=X (repeatable)")
	f.String("sort-by", "score", "column to sort by")
	f.Bool("ascending", false, "sort ascending instead of descending")
	f.Int("top-n", 0, "keep only the first N rows after sorting (0 keeps all)")
	f.String("columns", "", "comma-separated columns to export")
	f.String("output", "", "output file (.csv or .xlsx, default: stdout)")
	_ = rankCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	input, _ := f.GetString("input")
	filterSpecs, _ := f.GetStringArray("filter")
	sortBy, _ := f.GetString("sort-by")
	ascending, _ := f.GetBool("ascending")
	topN, _ := f.GetInt("top-n")
	columns, _ := f.GetString("columns")
	output, _ := f.GetString("output")

	filters, err := parseFilters(filterSpecs)
	if err != nil {
		return err
	}
	if topN < 0 {
		return eris.Errorf("rank: --top-n must not be negative, got %d", topN)
	}

	t, err := readTable(input, cfg.Input.Charset)
	if err != nil {
		return err
	}

	out, err := rank.Rank(t, rank.Options{
		Filters:       filters,
		SortColumn:    sortBy,
		Ascending:     ascending,
		TopN:          topN,
		ExportColumns: parseList(columns),
	})
	if err != nil {
		return err
	}
	return writeTable(out, output)
}
