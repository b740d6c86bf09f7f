package models

import (
	"encoding/json"
	"time"
)

// SaleRecord is one flat fact row. Dimension and measure keys come from the
// dataset definition the row was imported with.
type SaleRecord struct {
	ID         int64
	Dataset    string
	Year       int
	Month      int
	OrderDate  *time.Time
	Dimensions map[string]string
	Measures   map[string]float64
}

// MarshalJSON flattens dimensions and measures next to the period fields so
// the dashboard table can address columns by key.
func (r SaleRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Dimensions)+len(r.Measures)+4)
	for k, v := range r.Dimensions {
		out[k] = v
	}
	for k, v := range r.Measures {
		out[k] = v
	}
	out["id"] = r.ID
	out["year"] = r.Year
	out["month"] = r.Month
	if r.OrderDate != nil {
		out["orderDate"] = r.OrderDate.Format("2006-01-02")
	}
	return json.Marshal(out)
}

// Dimension returns the named dimension value or "".
func (r SaleRecord) Dimension(key string) string {
	return r.Dimensions[key]
}

// Measure returns the named measure value or 0.
func (r SaleRecord) Measure(key string) float64 {
	return r.Measures[key]
}
