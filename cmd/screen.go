package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kvirves/rik-screener/internal/pipeline"
	"github.com/kvirves/rik-screener/internal/store"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run a full screening profile end to end",
	Long: `Screen runs the whole flow from a profile: merge the profile's years,
compute ratios, score against thresholds, then filter and rank. With
--save the run and its ranked results are recorded in the store.

Examples:
  # Run a profile and write the ranked result
  screener screen --profile screens/growth.yaml --output result.csv

  # Record the run for later inspection with "screener runs"
  screener screen --profile screens/growth.yaml --save --output result.csv`,
	RunE: runScreen,
}

func init() {
	f := screenCmd.Flags()
	f.String("profile", "", "screen profile YAML (required)")
	f.String("data-dir", "", "directory with per-year datasets (default: config data_dir)")
	f.Bool("save", false, "record the run and its results in the store")
	f.String("output", "", "output file (.csv or .xlsx, default: stdout)")
	_ = screenCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	profilePath, _ := f.GetString("profile")
	dataDir, _ := f.GetString("data-dir")
	save, _ := f.GetBool("save")
	output, _ := f.GetString("output")
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	ctx := cmd.Context()

	p, err := pipeline.LoadProfile(profilePath)
	if err != nil {
		return err
	}

	var st store.Store
	if save {
		st, err = store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	screener := pipeline.New(pipeline.NewDirSource(dataDir, cfg.Input), st)
	res, err := screener.Run(ctx, p)
	if err != nil {
		return err
	}

	for _, e := range res.FormulaErrors {
		zap.L().Warn("screen: formula skipped", zap.Error(e))
	}
	if res.RunID != "" {
		zap.L().Info("screen: run recorded", zap.String("run_id", res.RunID))
	}
	return writeTable(res.Table, output)
}
