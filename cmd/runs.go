package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kvirves/rik-screener/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded screening runs",
	Long: `Runs lists screening runs recorded with "screen --save", newest first.
Pass a run ID to show that run's ranked results instead.

Examples:
  screener runs
  screener runs --status completed --limit 10
  screener runs 5f1c9d2e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	f := runsCmd.Flags()
	f.String("status", "", "only runs with this status (running, completed, failed)")
	f.Int("limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	status, _ := f.GetString("status")
	limit, _ := f.GetInt("limit")
	ctx := cmd.Context()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	if len(args) == 1 {
		return showRun(cmd, st, args[0])
	}

	runs, err := st.ListRuns(ctx, store.RunFilter{
		Status: store.RunStatus(status),
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no recorded runs")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROFILE\tSTATUS\tYEARS\tENTITIES\tRESULTS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Profile, r.Status, fmtYears(r.Years),
			r.Entities, r.ResultRows, r.StartedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func showRun(cmd *cobra.Command, st store.Store, runID string) error {
	ctx := cmd.Context()
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n  profile: %s\n  status: %s\n  years: %s\n",
		run.ID, run.Profile, run.Status, fmtYears(run.Years))
	if run.Error != "" {
		fmt.Fprintf(out, "  error: %s\n", run.Error)
	}

	rows, err := st.ListResults(ctx, runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCOMPANY\tSCORE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%g\n", r.Rank, r.CompanyCode, r.Score)
	}
	return tw.Flush()
}

func fmtYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprintf("%d", y)
	}
	return strings.Join(parts, ",")
}
