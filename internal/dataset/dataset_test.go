package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/sales-dashboard-be/internal/storage"
)

func mustDefinition(t *testing.T, name string) *Definition {
	t.Helper()
	catalog, err := Load()
	require.NoError(t, err)
	def, err := catalog.Get(name)
	require.NoError(t, err)
	return def
}

func TestLoadBuiltinDefinitions(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	store := catalog["store-revenue"]
	assert.Equal(t, []string{"revenue", "quantity", "checks"}, store.MeasureKeys())
	assert.Equal(t, []string{"store"}, store.SearchFields())

	shop := catalog["ecommerce-profit"]
	var routes []string
	for _, dim := range shop.RoutedDimensions() {
		routes = append(routes, dim.Route)
	}
	assert.Equal(t, []string{"region", "item", "channel"}, routes)

	_, err = catalog.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownDataset)
}

func TestParseRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]string{
		"bad period": `
datasets:
  - name: x
    period: {kind: weekly}
    measures: [{key: a, columns: [A], kind: float}]`,
		"reserved key": `
datasets:
  - name: x
    period: {kind: date, date: [D]}
    measures: [{key: year, columns: [A], kind: float}]`,
		"unknown sort measure": `
datasets:
  - name: x
    period: {kind: date, date: [D]}
    dimensions: [{key: shop, columns: [S], sort_by: profit}]
    measures: [{key: a, columns: [A], kind: float}]`,
		"unknown average denominator": `
datasets:
  - name: x
    period: {kind: date, date: [D]}
    measures: [{key: a, columns: [A], kind: float}]
    kpi: {average: {name: avg, numerator: a, denominator: b}}`,
		"duplicate dataset": `
datasets:
  - name: x
    period: {kind: date, date: [D]}
    measures: [{key: a, columns: [A], kind: float}]
  - name: x
    period: {kind: date, date: [D]}
    measures: [{key: a, columns: [A], kind: float}]`,
		"injection-shaped key": `
datasets:
  - name: x
    period: {kind: date, date: [D]}
    measures: [{key: "a'); DROP TABLE users;--", columns: [A], kind: float}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"1,234.50":   1234.5,
		"1,000":      1000,
		" 42 ":       42,
		"1 000,":     1000,
		"1\u00a0500": 1500,
		"":           0,
		"n/a":        0,
		"-12.5":      -12.5,
		"1e400":      0,
		"-1e400":     0,
	}
	for in, want := range cases {
		assert.InDelta(t, want, ParseNumber(in), 1e-9, "input %q", in)
	}
}

func TestMapStoreRevenueRow(t *testing.T) {
	def := mustDefinition(t, "store-revenue")

	rec, err := def.Map(map[string]string{
		"Year": "2023", "Month": "1", "Store": " A ", "Revenue": "1,000", "Quantity": "5", "Checks": "2",
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "store-revenue", rec.Dataset)
	assert.Equal(t, 2023, rec.Year)
	assert.Equal(t, 1, rec.Month)
	assert.Nil(t, rec.OrderDate)
	assert.Equal(t, "A", rec.Dimension("store"))
	assert.Equal(t, 1000.0, rec.Measure("revenue"))
	assert.Equal(t, 5.0, rec.Measure("quantity"))
	assert.Equal(t, 2.0, rec.Measure("checks"))
}

func TestMapDefaultsMissingCells(t *testing.T) {
	def := mustDefinition(t, "store-revenue")

	rec, err := def.Map(map[string]string{"Year": "2023", "Revenue": "oops"}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, rec.Month)
	assert.Equal(t, "", rec.Dimension("store"))
	assert.Contains(t, rec.Dimensions, "store")
	assert.Equal(t, 0.0, rec.Measure("revenue"))
	assert.Equal(t, 0.0, rec.Measure("quantity"))
}

func TestMapIntMeasuresTruncate(t *testing.T) {
	def := mustDefinition(t, "ecommerce-profit")

	rec, err := def.Map(map[string]string{"Order Date": "7/27/2012", "Units Sold": "4,570.9", "Unit Price": "9.33"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4570.0, rec.Measure("unitsSold"))
	assert.Equal(t, 9.33, rec.Measure("unitPrice"))

	rec, err = def.Map(map[string]string{"Order Date": "7/27/2012", "Units Sold": "1e19"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1e19, rec.Measure("unitsSold"))
	rec, err = def.Map(map[string]string{"Order Date": "7/27/2012", "Units Sold": "-12345678901234567890.7"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, -12345678901234567890.0, rec.Measure("unitsSold"))
}

func TestMapEcommerceDates(t *testing.T) {
	def := mustDefinition(t, "ecommerce-profit")
	now := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)

	rec, err := def.Map(map[string]string{"Order Date": "7/27/2012", "Region": "Europe", "Item Type": "Office Supplies"}, now)
	require.NoError(t, err)
	require.NotNil(t, rec.OrderDate)
	assert.Equal(t, "2012-07-27", rec.OrderDate.Format("2006-01-02"))
	assert.Equal(t, 2012, rec.Year)
	assert.Equal(t, 7, rec.Month)
	assert.Equal(t, "Office Supplies", rec.Dimension("itemType"))

	alias, err := def.Map(map[string]string{"Date": "2019-11-02"}, now)
	require.NoError(t, err)
	assert.Equal(t, 2019, alias.Year)

	missing, err := def.Map(map[string]string{}, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", missing.OrderDate.Format("2006-01-02"))

	_, err = def.Map(map[string]string{"Order Date": "someday"}, now)
	assert.Error(t, err)
}

func TestMapAllReportsRowNumber(t *testing.T) {
	def := mustDefinition(t, "ecommerce-profit")
	_, err := def.MapAll([]map[string]string{{"Order Date": "1/2/2020"}, {"Order Date": "bad"}}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestKPIExample(t *testing.T) {
	def := mustDefinition(t, "store-revenue")

	kpi := def.KPIRow(storage.Totals{Count: 1, Sums: map[string]float64{"revenue": 1000, "quantity": 5, "checks": 2}})
	assert.Equal(t, map[string]any{
		"totalRevenue":   1000.0,
		"totalQuantity":  5.0,
		"totalChecks":    2.0,
		"avgRevPerCheck": 500.0,
		"recordCount":    int64(1),
	}, kpi)
}

func TestKPIEmptyHasZeroAverage(t *testing.T) {
	for _, name := range []string{"store-revenue", "ecommerce-profit"} {
		def := mustDefinition(t, name)
		kpi := def.KPIRow(storage.Totals{Sums: map[string]float64{}})
		for key, value := range kpi {
			assert.EqualValues(t, 0, value, "%s.%s", name, key)
		}
	}
}

func TestKPIAverageOverRecords(t *testing.T) {
	def := mustDefinition(t, "ecommerce-profit")
	kpi := def.KPIRow(storage.Totals{Count: 4, Sums: map[string]float64{"totalRevenue": 100}})
	assert.Equal(t, 25.0, kpi["avgOrderValue"])
}

func TestGroupRowsOrdering(t *testing.T) {
	def := mustDefinition(t, "store-revenue")
	groups := []storage.Group{
		{Key: "A", Sums: map[string]float64{"revenue": 10}},
		{Key: "B", Sums: map[string]float64{"revenue": 30}},
		{Key: "C", Sums: map[string]float64{"revenue": 20}},
	}

	rows := def.GroupRows(def.Dimensions[0], groups)
	require.Len(t, rows, 3)
	assert.Equal(t, "B", rows[0]["store"])
	assert.Equal(t, "C", rows[1]["store"])
	assert.Equal(t, "A", rows[2]["store"])
	assert.Equal(t, 0.0, rows[0]["checks"])
	assert.Equal(t, "A", groups[0].Key, "input slice is left untouched")

	plain := Dimension{Key: "store"}
	rows = def.GroupRows(plain, groups)
	assert.Equal(t, "A", rows[0]["store"])
}

func TestTrendRows(t *testing.T) {
	def := mustDefinition(t, "store-revenue")
	rows := def.TrendRows([]storage.PeriodGroup{{Year: 2023, Month: 2, Sums: map[string]float64{"revenue": 5}}})
	require.Len(t, rows, 1)
	assert.Equal(t, "Feb 2023", rows[0]["label"])
	assert.Equal(t, 5.0, rows[0]["revenue"])

	assert.Equal(t, "2023", MonthLabel(2023, 0))
	assert.Equal(t, "Dec 2020", MonthLabel(2020, 12))
}
