package dataset

import (
	"fmt"
	"sort"

	"github.com/hongminglow/sales-dashboard-be/internal/storage"
)

var monthLabels = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// KPIRow renders totals into the dataset's KPI payload. The average is
// sum(numerator)/sum(denominator), or 0 when the denominator is 0.
func (d *Definition) KPIRow(t storage.Totals) map[string]any {
	out := make(map[string]any, len(d.KPI.Totals)+2)
	for _, total := range d.KPI.Totals {
		out[total.Name] = t.Sums[total.Measure]
	}
	if avg := d.KPI.Average; avg != nil {
		denominator := float64(t.Count)
		if avg.Denominator != RecordsDenominator {
			denominator = t.Sums[avg.Denominator]
		}
		value := 0.0
		if denominator != 0 {
			value = t.Sums[avg.Numerator] / denominator
		}
		out[avg.Name] = value
	}
	out["recordCount"] = t.Count
	return out
}

// GroupRows orders dimension buckets per the dimension's sort settings and
// renders them as {<dimension>: key, <measure>: sum...}.
func (d *Definition) GroupRows(dim Dimension, groups []storage.Group) []map[string]any {
	sorted := append([]storage.Group(nil), groups...)
	if dim.SortBy != "" {
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := sorted[i].Sums[dim.SortBy], sorted[j].Sums[dim.SortBy]
			if dim.Desc {
				return a > b
			}
			return a < b
		})
	} else if dim.Desc {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key > sorted[j].Key })
	}

	rows := make([]map[string]any, 0, len(sorted))
	for _, g := range sorted {
		row := d.sumsRow(g.Sums)
		row[dim.Key] = g.Key
		rows = append(rows, row)
	}
	return rows
}

// YearRows renders per-year buckets.
func (d *Definition) YearRows(groups []storage.PeriodGroup) []map[string]any {
	rows := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		row := d.sumsRow(g.Sums)
		row["year"] = g.Year
		rows = append(rows, row)
	}
	return rows
}

// TrendRows renders per-month buckets with a display label.
func (d *Definition) TrendRows(groups []storage.PeriodGroup) []map[string]any {
	rows := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		row := d.sumsRow(g.Sums)
		row["year"] = g.Year
		row["month"] = g.Month
		row["label"] = MonthLabel(g.Year, g.Month)
		rows = append(rows, row)
	}
	return rows
}

// MonthLabel formats a bucket as "Jan 2023"; out-of-range months fall back to the year.
func MonthLabel(year, month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%d", year)
	}
	return fmt.Sprintf("%s %d", monthLabels[month-1], year)
}

func (d *Definition) sumsRow(sums map[string]float64) map[string]any {
	row := make(map[string]any, len(d.Measures)+3)
	for _, m := range d.Measures {
		row[m.Key] = sums[m.Key]
	}
	return row
}
