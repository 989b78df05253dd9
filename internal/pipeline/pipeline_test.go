package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvirves/rik-screener/internal/formula"
	"github.com/kvirves/rik-screener/internal/merge"
	"github.com/kvirves/rik-screener/internal/scoring"
	"github.com/kvirves/rik-screener/internal/store"
)

func fp(f float64) *float64 { return &f }

// writeDataDir lays out two registry years. Entity 100 grows revenue
// 800 -> 1000 at a 20% EBITDA margin; entity 200 only reports 2023 at a
// 15% margin; entity 300 is a foundation and falls to the legal-form
// filter.
func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	csv2023 := "company_code,legal_form,Müügitulu,Ärikasum (kahjum),Põhivarade kulum ja väärtuse langus\n" +
		"100,OÜ,1000,150,-50\n" +
		"200,AS,500,50,-25\n" +
		"300,SA,900,100,-10\n"
	csv2022 := "company_code,legal_form,Müügitulu,Ärikasum (kahjum),Põhivarade kulum ja väärtuse langus\n" +
		"100,OÜ,800,100,-40\n" +
		"300,SA,850,90,-10\n"

	require.NoError(t, os.WriteFile(filepath.Join(dir, "companies_2023.csv"), []byte(csv2023), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "companies_2022.csv"), []byte(csv2022), 0o644))
	return dir
}

func testProfile() *Profile {
	return &Profile{
		Name:       "margin-screen",
		Years:      []int{2023, 2022},
		LegalForms: []string{"AS", "OÜ"},
		StandardFormulas: map[string]BuiltinParams{
			"ebitda_margin":  {},
			"revenue_growth": {},
		},
		Scoring: scoring.Config{
			"ebitda_margin_2023": {Thresholds: []scoring.Rule{
				{Min: fp(0.3), Points: 5},
				{Min: fp(0.2), Points: 3},
				{Min: fp(0.1), Points: 1},
			}},
			"revenue_growth_2022_to_2023": {Thresholds: []scoring.Rule{
				{Min: fp(0.1), Points: 2},
			}},
		},
		SortColumn: "score",
	}
}

func newScreener(t *testing.T, st store.Store) *Screener {
	t.Helper()
	src := &DirSource{Dir: writeDataDir(t), Pattern: "companies_%d.csv"}
	return New(src, st)
}

func TestRun_EndToEnd(t *testing.T) {
	res, err := newScreener(t, nil).Run(context.Background(), testProfile())
	require.NoError(t, err)
	require.Empty(t, res.FormulaErrors)

	out := res.Table
	require.Equal(t, 2, out.Len(), "foundation 300 filtered out")
	assert.Equal(t, 2, res.Summary.Merged)
	assert.Equal(t, 2, res.Summary.Final)

	// Entity 100: margin (150+50)/1000 = 0.2 -> 3 points, growth
	// 1000/800 - 1 = 0.25 -> 2 points.
	assert.Equal(t, "100", out.At(0, "company_code").String())
	score, ok := out.At(0, "score").Float()
	require.True(t, ok)
	assert.Equal(t, 5.0, score)

	// Entity 200 has no 2022 revenue: growth is absent and scores zero,
	// margin (50+25)/500 = 0.15 -> 1 point. The row survives.
	assert.Equal(t, "200", out.At(1, "company_code").String())
	score, ok = out.At(1, "score").Float()
	require.True(t, ok)
	assert.Equal(t, 1.0, score)
	assert.True(t, out.At(1, "revenue_growth_2022_to_2023").IsAbsent())
}

func TestRun_PersistsToStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "screener.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	res, err := newScreener(t, st).Run(ctx, testProfile())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	run, err := st.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusCompleted, run.Status)
	assert.Equal(t, "margin-screen", run.Profile)
	assert.Equal(t, 2, run.Entities)
	assert.Equal(t, 2, run.ResultRows)

	rows, err := st.ListResults(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "100", rows[0].CompanyCode)
	assert.Equal(t, 5.0, rows[0].Score)
}

func TestRun_ExportColumnsDoNotNarrowStoredRows(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "screener.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	p := testProfile()
	p.ExportColumns = []string{"ebitda_margin_2023"}

	res, err := newScreener(t, st).Run(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"ebitda_margin_2023"}, res.Table.Columns())

	rows, err := st.ListResults(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "100", rows[0].CompanyCode)
	assert.Equal(t, 5.0, rows[0].Score)
	assert.Equal(t, "200", rows[1].CompanyCode)
	assert.Equal(t, 1.0, rows[1].Score)
}

func TestRun_RecordsFailure(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "screener.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	p := testProfile()
	p.LegalForms = []string{"UÜ"} // nothing matches
	p.FailOnEmpty = true

	_, err = newScreener(t, st).Run(ctx, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, merge.ErrEmptyResult)

	runs, err := st.ListRuns(ctx, store.RunFilter{Status: store.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "no entities")
}

func TestRun_InvalidProfileFailsBeforeCreatingRun(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "screener.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	p := testProfile()
	p.Years = nil

	_, err = newScreener(t, st).Run(ctx, p)
	require.Error(t, err)

	runs, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs, "no run recorded for a config rejected up front")
}

func TestRun_MissingYearFile(t *testing.T) {
	p := testProfile()
	p.Years = []int{2023, 2022, 2019}

	_, err := newScreener(t, nil).Run(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2019")
}

func TestRun_FlagVehicles(t *testing.T) {
	dir := t.TempDir()
	csv2023 := "company_code,legal_form,Müügitulu,Ärikasum (kahjum),Põhivarade kulum ja väärtuse langus\n" +
		"100,OÜ,1000,150,-50\n" +
		"400,OÜ,1,5000,0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "companies_2023.csv"), []byte(csv2023), 0o644))

	p := &Profile{
		Name:  "vehicles",
		Years: []int{2023},
		StandardFormulas: map[string]BuiltinParams{
			"ebitda_margin": {},
		},
		FlagVehicles: true,
		SortColumn:   "score",
		Scoring: scoring.Config{
			"ebitda_margin_2023": {Thresholds: []scoring.Rule{{Min: fp(0.1), Points: 1}}},
		},
	}

	src := &DirSource{Dir: dir, Pattern: "companies_%d.csv"}
	res, err := New(src, nil).Run(context.Background(), p)
	require.NoError(t, err)

	out := res.Table
	require.True(t, out.HasColumn(formula.VehicleColumn))

	var vehicleRow, operatingRow = -1, -1
	for i := 0; i < out.Len(); i++ {
		switch out.At(i, "company_code").String() {
		case "400":
			vehicleRow = i
		case "100":
			operatingRow = i
		}
	}
	require.GreaterOrEqual(t, vehicleRow, 0)
	require.GreaterOrEqual(t, operatingRow, 0)

	assert.True(t, out.At(vehicleRow, formula.VehicleColumn).True())
	assert.True(t, out.At(vehicleRow, "ebitda_margin_2023").IsAbsent(),
		"placeholder revenue blanks the margin")
	assert.False(t, out.At(operatingRow, formula.VehicleColumn).True())
}

func TestDirSource_PatternDefault(t *testing.T) {
	dir := writeDataDir(t)
	src := &DirSource{Dir: dir}

	tbl, err := src.Dataset(context.Background(), 2023)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
}
