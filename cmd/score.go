package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kvirves/rik-screener/internal/pipeline"
	"github.com/kvirves/rik-screener/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a ratios table against threshold rules",
	Long: `Score maps ratio columns through the profile's threshold rules and appends
an additive score column. Per metric the first matching rule wins; absent
values score zero and never drop a row.

Examples:
  # Score using the rules in a screen profile
  screener score --input ratios.csv --profile screen.yaml --output scored.csv

  # Keep per-metric point columns for auditing
  screener score --input ratios.csv --profile screen.yaml --audit --output scored.csv`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("input", "", "ratios input table (.csv or .xlsx, required)")
	f.String("profile", "", "screen profile YAML with a scoring section (required)")
	f.Bool("audit", false, "append per-metric point columns")
	f.String("output", "", "output file (.csv or .xlsx, default: stdout)")
	_ = scoreCmd.MarkFlagRequired("input")
	_ = scoreCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	input, _ := f.GetString("input")
	profilePath, _ := f.GetString("profile")
	audit, _ := f.GetBool("audit")
	output, _ := f.GetString("output")

	p, err := pipeline.LoadProfile(profilePath)
	if err != nil {
		return err
	}
	if len(p.Scoring) == 0 {
		return eris.Errorf("score: profile %s has no scoring section", profilePath)
	}

	t, err := readTable(input, cfg.Input.Charset)
	if err != nil {
		return err
	}

	scored, err := scoring.Score(t, p.Scoring, scoring.Options{Audit: audit})
	if err != nil {
		return err
	}
	return writeTable(scored, output)
}
