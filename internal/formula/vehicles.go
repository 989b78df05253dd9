package formula

import (
	"strings"

	"go.uber.org/zap"

	"github.com/kvirves/rik-screener/internal/table"
)

// VehicleColumn marks entities that look like holding or investment
// vehicles rather than operating companies.
const VehicleColumn = "investment_vehicle"

// FlagVehicles returns a new table with an investment_vehicle column.
// An entity is flagged for a year when its revenue equals the registry
// placeholder value 1 or its EBITDA margin exceeds 1.0; for flagged rows
// every ratio whose formula references that year's revenue is blanked,
// since a placeholder denominator makes the ratio meaningless.
func FlagVehicles(t *table.Table, years []int, set Set) *table.Table {
	out := t.Clone()
	flags := make([]table.Value, t.Len())
	for i := range flags {
		flags[i] = table.Bool(false)
	}

	flagged := 0
	res := table.NewResolver(out)
	for _, year := range years {
		if !res.Has(MetricRevenue, year) && !res.Has("ebitda_margin", year) {
			continue
		}

		revenueRef := `"` + table.ColumnName(MetricRevenue, year) + `"`
		var dependent []string
		for name, expr := range set {
			if strings.Contains(expr, revenueRef) && out.HasColumn(name) {
				dependent = append(dependent, name)
			}
		}

		for row := 0; row < out.Len(); row++ {
			hit := false
			if f, ok := res.Float(row, MetricRevenue, year); ok && f == 1 {
				hit = true
			}
			if f, ok := res.Float(row, "ebitda_margin", year); ok && f > 1.0 {
				hit = true
			}
			if !hit {
				continue
			}
			if !flags[row].True() {
				flagged++
			}
			flags[row] = table.Bool(true)
			for _, col := range dependent {
				_ = out.Set(row, col, table.Absent)
			}
		}
	}

	_ = out.AddColumn(VehicleColumn, flags)
	zap.L().Info("formula: flagged investment vehicles",
		zap.Int("flagged", flagged), zap.Int("rows", out.Len()))
	return out
}
