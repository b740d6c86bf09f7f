package dataset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/sales-dashboard-be/internal/models"
)

var dateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.2006",
	"Jan 2, 2006",
}

// thousands strips grouping characters spreadsheets put in formatted numbers.
var thousands = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "")

// Map converts one imported row into a SaleRecord. now is used when a date
// dataset row carries no date at all.
func (d *Definition) Map(raw map[string]string, now time.Time) (models.SaleRecord, error) {
	rec := models.SaleRecord{
		Dataset:    d.Name,
		Dimensions: make(map[string]string, len(d.Dimensions)),
		Measures:   make(map[string]float64, len(d.Measures)),
	}

	switch d.Period.Kind {
	case PeriodYearMonth:
		rec.Year = int(ParseNumber(lookup(raw, d.Period.Year)))
		rec.Month = int(ParseNumber(lookup(raw, d.Period.Month)))
	case PeriodDate:
		date := now.UTC()
		if value := lookup(raw, d.Period.Date); value != "" {
			parsed, err := ParseDate(value)
			if err != nil {
				return models.SaleRecord{}, err
			}
			date = parsed
		}
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		rec.OrderDate = &day
		rec.Year = day.Year()
		rec.Month = int(day.Month())
	}

	for _, dim := range d.Dimensions {
		rec.Dimensions[dim.Key] = strings.TrimSpace(lookup(raw, dim.Columns))
	}
	for _, m := range d.Measures {
		value := ParseNumber(lookup(raw, m.Columns))
		if m.Kind == KindInt {
			value = math.Trunc(value)
		}
		rec.Measures[m.Key] = value
	}
	return rec, nil
}

// MapAll maps every row, reporting the 1-based data row number on failure.
func (d *Definition) MapAll(rows []map[string]string, now time.Time) ([]models.SaleRecord, error) {
	out := make([]models.SaleRecord, 0, len(rows))
	for i, raw := range rows {
		rec, err := d.Map(raw, now)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParseNumber parses a spreadsheet cell such as "1,234.50". Blank or
// unparsable input yields 0.
func ParseNumber(s string) float64 {
	cleaned := thousands.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

// ParseDate accepts the date layouts spreadsheet exports commonly use.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// lookup returns the first non-empty value among the column aliases.
func lookup(raw map[string]string, columns []string) string {
	for _, col := range columns {
		if v := raw[col]; strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
