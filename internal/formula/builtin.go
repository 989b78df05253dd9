package formula

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/kvirves/rik-screener/internal/table"
)

// Metric column bases as labeled in the Estonian business-registry annual
// report datasets. The built-in ratio templates reference these.
const (
	MetricRevenue             = "Müügitulu"
	MetricOperatingProfit     = "Ärikasum (kahjum)"
	MetricDepreciation        = "Põhivarade kulum ja väärtuse langus"
	MetricNetProfit           = "Aruandeaasta kasum (kahjum)"
	MetricEquity              = "Omakapital"
	MetricAssets              = "Varad"
	MetricEmployees           = "Töötajate keskmine arv taandatud täistööajale"
	MetricCash                = "Raha"
	MetricCurrentAssets       = "Käibevarad"
	MetricCurrentLiabilities  = "Lühiajalised kohustised"
	MetricLongTermLiabilities = "Pikaajalised kohustised"
	MetricLabourCosts         = "Tööjõukulud"
)

// ref renders a quoted year-suffixed column reference.
func ref(metric string, year int) string {
	return `"` + table.ColumnName(metric, year) + `"`
}

// EBITDAMargin is (operating profit + |depreciation|) / revenue.
func EBITDAMargin(year int) string {
	return fmt.Sprintf("(%s + abs(%s)) / %s",
		ref(MetricOperatingProfit, year), ref(MetricDepreciation, year), ref(MetricRevenue, year))
}

// RevenueGrowth is the relative revenue change between two years.
func RevenueGrowth(fromYear, toYear int) string {
	return fmt.Sprintf("((%s / %s) - 1)", ref(MetricRevenue, toYear), ref(MetricRevenue, fromYear))
}

// RevenueCAGR is the compound annual revenue growth rate over a span.
func RevenueCAGR(startYear, endYear int) string {
	return fmt.Sprintf("(pow((%s / %s), 1/%d) - 1)",
		ref(MetricRevenue, endYear), ref(MetricRevenue, startYear), endYear-startYear)
}

// ROE is net profit over equity; the averaging variant divides by the
// mean of the year's and the prior year's equity.
func ROE(year int, averaging bool) string {
	if !averaging {
		return fmt.Sprintf("%s / %s", ref(MetricNetProfit, year), ref(MetricEquity, year))
	}
	return fmt.Sprintf("%s / ((%s + %s) / 2)",
		ref(MetricNetProfit, year), ref(MetricEquity, year), ref(MetricEquity, year-1))
}

// ROA is net profit over assets, with the same averaging convention.
func ROA(year int, averaging bool) string {
	if !averaging {
		return fmt.Sprintf("%s / %s", ref(MetricNetProfit, year), ref(MetricAssets, year))
	}
	return fmt.Sprintf("%s / ((%s + %s) / 2)",
		ref(MetricNetProfit, year), ref(MetricAssets, year), ref(MetricAssets, year-1))
}

// AssetTurnover is revenue over assets.
func AssetTurnover(year int, averaging bool) string {
	if !averaging {
		return fmt.Sprintf("%s / %s", ref(MetricRevenue, year), ref(MetricAssets, year))
	}
	return fmt.Sprintf("%s / ((%s + %s) / 2)",
		ref(MetricRevenue, year), ref(MetricAssets, year), ref(MetricAssets, year-1))
}

// EmployeeEfficiency is revenue per full-time-equivalent employee.
func EmployeeEfficiency(year int, averaging bool) string {
	if !averaging {
		return fmt.Sprintf("%s / %s", ref(MetricRevenue, year), ref(MetricEmployees, year))
	}
	return fmt.Sprintf("%s / ((%s + %s) / 2)",
		ref(MetricRevenue, year), ref(MetricEmployees, year), ref(MetricEmployees, year-1))
}

// CashRatio is cash over current liabilities.
func CashRatio(year int) string {
	return fmt.Sprintf("%s / %s", ref(MetricCash, year), ref(MetricCurrentLiabilities, year))
}

// CurrentRatio is current assets over current liabilities.
func CurrentRatio(year int) string {
	return fmt.Sprintf("%s / %s", ref(MetricCurrentAssets, year), ref(MetricCurrentLiabilities, year))
}

// DebtToEquity is total liabilities over equity.
func DebtToEquity(year int) string {
	return fmt.Sprintf("(%s + %s) / %s",
		ref(MetricCurrentLiabilities, year), ref(MetricLongTermLiabilities, year), ref(MetricEquity, year))
}

// LabourRatio is labour costs (stored negative in the registry data) as a
// share of revenue.
func LabourRatio(year int) string {
	return fmt.Sprintf("-(%s) / %s", ref(MetricLabourCosts, year), ref(MetricRevenue, year))
}

// Params parameterizes a built-in formula family.
type Params struct {
	Years     []int
	Averaging bool
}

// Names lists the built-in formula families accepted by Expand.
func Names() []string {
	return []string{
		"ebitda_margin",
		"revenue_growth",
		"revenue_cagr",
		"asset_turnover",
		"roe",
		"roa",
		"employee_efficiency",
		"cash_ratio",
		"current_ratio",
		"debt_to_equity",
		"labour_ratio",
	}
}

// Expand produces the output-column→expression set for one built-in
// family over the given years. Averaging variants drop the "_single"
// suffix; single-year variants carry it, matching the column naming the
// scoring configs reference.
func Expand(name string, p Params) (Set, error) {
	if len(p.Years) == 0 {
		return nil, eris.Errorf("formula: built-in %q needs at least one year", name)
	}
	years := sortedDesc(p.Years)
	out := Set{}

	perYear := func(col string, expr func(int) string) {
		for _, y := range years {
			out[fmt.Sprintf("%s_%d", col, y)] = expr(y)
		}
	}
	variant := func(base string, expr func(int, bool) string) {
		col := base
		if !p.Averaging {
			col += "_single"
		}
		for _, y := range years {
			out[fmt.Sprintf("%s_%d", col, y)] = expr(y, p.Averaging)
		}
	}

	switch name {
	case "ebitda_margin":
		perYear("ebitda_margin", EBITDAMargin)
	case "roe":
		variant("roe", ROE)
	case "roa":
		variant("roa", ROA)
	case "asset_turnover":
		variant("asset_turnover", AssetTurnover)
	case "employee_efficiency":
		variant("employee_efficiency", EmployeeEfficiency)
	case "cash_ratio":
		perYear("cash_ratio", CashRatio)
	case "current_ratio":
		perYear("current_ratio", CurrentRatio)
	case "debt_to_equity":
		perYear("debt_to_equity", DebtToEquity)
	case "labour_ratio":
		perYear("labour_ratio", LabourRatio)
	case "revenue_growth":
		if len(years) < 2 {
			return nil, eris.New("formula: revenue_growth needs at least two years")
		}
		for i := 0; i < len(years)-1; i++ {
			to, from := years[i], years[i+1]
			out[fmt.Sprintf("revenue_growth_%d_to_%d", from, to)] = RevenueGrowth(from, to)
		}
	case "revenue_cagr":
		if len(years) < 2 {
			return nil, eris.New("formula: revenue_cagr needs at least two years")
		}
		start, end := years[len(years)-1], years[0]
		out[fmt.Sprintf("revenue_cagr_%d_to_%d", start, end)] = RevenueCAGR(start, end)
	default:
		return nil, eris.Errorf("formula: unknown built-in formula %q", name)
	}
	return out, nil
}

// Standard returns the full built-in ratio set for the given years: every
// per-year ratio in both averaging and single-year variants, year-pair
// revenue growth, and the CAGR over the whole span when it covers three
// or more years.
func Standard(years []int) Set {
	years = sortedDesc(years)
	out := Set{}
	for _, y := range years {
		out[fmt.Sprintf("ebitda_margin_%d", y)] = EBITDAMargin(y)
		out[fmt.Sprintf("roe_%d", y)] = ROE(y, true)
		out[fmt.Sprintf("roe_single_%d", y)] = ROE(y, false)
		out[fmt.Sprintf("roa_%d", y)] = ROA(y, true)
		out[fmt.Sprintf("roa_single_%d", y)] = ROA(y, false)
		out[fmt.Sprintf("asset_turnover_%d", y)] = AssetTurnover(y, true)
		out[fmt.Sprintf("asset_turnover_single_%d", y)] = AssetTurnover(y, false)
		out[fmt.Sprintf("employee_efficiency_%d", y)] = EmployeeEfficiency(y, true)
		out[fmt.Sprintf("employee_efficiency_single_%d", y)] = EmployeeEfficiency(y, false)
		out[fmt.Sprintf("cash_ratio_%d", y)] = CashRatio(y)
		out[fmt.Sprintf("current_ratio_%d", y)] = CurrentRatio(y)
		out[fmt.Sprintf("debt_to_equity_%d", y)] = DebtToEquity(y)
		out[fmt.Sprintf("labour_ratio_%d", y)] = LabourRatio(y)
	}
	if len(years) >= 2 {
		for i := 0; i < len(years)-1; i++ {
			to, from := years[i], years[i+1]
			out[fmt.Sprintf("revenue_growth_%d_to_%d", from, to)] = RevenueGrowth(from, to)
		}
	}
	if len(years) >= 3 {
		start, end := years[len(years)-1], years[0]
		out[fmt.Sprintf("revenue_cagr_%d_to_%d", start, end)] = RevenueCAGR(start, end)
	}
	return out
}

func sortedDesc(years []int) []int {
	out := make([]int, len(years))
	copy(out, years)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
