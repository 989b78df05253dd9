package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kvirves/rik-screener/internal/merge"
	"github.com/kvirves/rik-screener/internal/pipeline"
	"github.com/kvirves/rik-screener/internal/table"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge per-year datasets into one wide table",
	Long: `Merge aligns per-year company datasets into a single table with one row
per company and year-suffixed columns.

Examples:
  # Outer-join three years of data
  screener merge --years 2023,2022,2021 --output merged.csv

  # Only companies present in every year, restricted to AS and OÜ
  screener merge --years 2023,2022 --legal-forms AS,OÜ --require-all-years --output merged.xlsx`,
	RunE: runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.String("years", "", "comma-separated years to merge (required)")
	f.String("legal-forms", "", "comma-separated legal-form codes to keep")
	f.Bool("require-all-years", false, "keep only companies present in every year")
	f.Bool("fail-on-empty", false, "treat an empty merged result as an error")
	f.String("data-dir", "", "directory with per-year datasets (default: config data_dir)")
	f.String("output", "", "output file (.csv or .xlsx, default: stdout)")
	_ = mergeCmd.MarkFlagRequired("years")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	yearsStr, _ := f.GetString("years")
	years, err := parseYears(yearsStr)
	if err != nil {
		return err
	}
	legalForms, _ := f.GetString("legal-forms")
	requireAll, _ := f.GetBool("require-all-years")
	failOnEmpty, _ := f.GetBool("fail-on-empty")
	dataDir, _ := f.GetString("data-dir")
	output, _ := f.GetString("output")
	if dataDir == "" {
		dataDir = cfg.DataDir
	}

	src := pipeline.NewDirSource(dataDir, cfg.Input)
	datasets := make(map[int]*table.Table, len(years))
	for _, y := range years {
		t, err := src.Dataset(cmd.Context(), y)
		if err != nil {
			return err
		}
		datasets[y] = t
	}

	merged, err := merge.Merge(datasets, merge.Options{
		LegalForms:      parseList(legalForms),
		RequireAllYears: requireAll,
		EmptyIsError:    failOnEmpty,
	})
	if err != nil {
		return err
	}

	zap.L().Info("merge: writing output",
		zap.Int("rows", merged.Len()), zap.String("output", output))
	return writeTable(merged, output)
}
