// Package dataset describes the shape of each supported spreadsheet export:
// which columns feed the period, the dimensions and the measures, and how the
// reporting endpoints summarise them. One generic reporting path serves every
// dataset declared in definitions.yaml.
package dataset

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed definitions.yaml
var builtin []byte

// ErrUnknownDataset is returned by Catalog.Get for undeclared names.
var ErrUnknownDataset = errors.New("unknown dataset")

// Period kinds.
const (
	PeriodYearMonth = "year_month"
	PeriodDate      = "date"
)

// Measure kinds.
const (
	KindFloat = "float"
	KindInt   = "int"
)

// RecordsDenominator makes an average divide by the record count.
const RecordsDenominator = "records"

var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// reserved keys are already used by the flattened row and report payloads.
var reserved = map[string]bool{"id": true, "year": true, "month": true, "orderDate": true, "label": true, "recordCount": true}

type Period struct {
	Kind  string   `yaml:"kind"`
	Year  []string `yaml:"year"`
	Month []string `yaml:"month"`
	Date  []string `yaml:"date"`
}

type Dimension struct {
	Key        string   `yaml:"key"`
	Columns    []string `yaml:"columns"`
	Route      string   `yaml:"route"`
	Searchable bool     `yaml:"searchable"`
	SortBy     string   `yaml:"sort_by"`
	Desc       bool     `yaml:"desc"`
}

type Measure struct {
	Key     string   `yaml:"key"`
	Columns []string `yaml:"columns"`
	Kind    string   `yaml:"kind"`
}

type Total struct {
	Name    string `yaml:"name"`
	Measure string `yaml:"measure"`
}

type Average struct {
	Name        string `yaml:"name"`
	Numerator   string `yaml:"numerator"`
	Denominator string `yaml:"denominator"`
}

type KPI struct {
	Totals  []Total  `yaml:"totals"`
	Average *Average `yaml:"average"`
}

// Definition is one dataset shape.
type Definition struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Period      Period      `yaml:"period"`
	Dimensions  []Dimension `yaml:"dimensions"`
	Measures    []Measure   `yaml:"measures"`
	TableOrder  []string    `yaml:"table_order"`
	KPI         KPI         `yaml:"kpi"`
}

// Catalog indexes definitions by name.
type Catalog map[string]*Definition

// Load parses the built-in definitions.
func Load() (Catalog, error) {
	return Parse(builtin)
}

// Parse decodes and validates a definitions document.
func Parse(data []byte) (Catalog, error) {
	var doc struct {
		Datasets []*Definition `yaml:"datasets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode dataset definitions: %w", err)
	}
	catalog := make(Catalog, len(doc.Datasets))
	for _, def := range doc.Datasets {
		if err := def.validate(); err != nil {
			return nil, fmt.Errorf("dataset %q: %w", def.Name, err)
		}
		if _, dup := catalog[def.Name]; dup {
			return nil, fmt.Errorf("dataset %q declared twice", def.Name)
		}
		catalog[def.Name] = def
	}
	return catalog, nil
}

// Get returns the named definition.
func (c Catalog) Get(name string) (*Definition, error) {
	def, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	return def, nil
}

// MeasureKeys lists measure keys in declaration order.
func (d *Definition) MeasureKeys() []string {
	keys := make([]string, len(d.Measures))
	for i, m := range d.Measures {
		keys[i] = m.Key
	}
	return keys
}

// SearchFields lists the dimensions the table search looks at.
func (d *Definition) SearchFields() []string {
	var keys []string
	for _, dim := range d.Dimensions {
		if dim.Searchable {
			keys = append(keys, dim.Key)
		}
	}
	return keys
}

// RoutedDimensions lists dimensions exposed as /by-<route> endpoints.
func (d *Definition) RoutedDimensions() []Dimension {
	var out []Dimension
	for _, dim := range d.Dimensions {
		if dim.Route != "" {
			out = append(out, dim)
		}
	}
	return out
}

func (d *Definition) validate() error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	switch d.Period.Kind {
	case PeriodYearMonth:
		if len(d.Period.Year) == 0 || len(d.Period.Month) == 0 {
			return errors.New("year_month period needs year and month columns")
		}
	case PeriodDate:
		if len(d.Period.Date) == 0 {
			return errors.New("date period needs date columns")
		}
	default:
		return fmt.Errorf("unknown period kind %q", d.Period.Kind)
	}
	if len(d.Measures) == 0 {
		return errors.New("at least one measure is required")
	}

	seen := map[string]bool{}
	measures := map[string]bool{}
	for _, m := range d.Measures {
		if err := checkKey(m.Key, m.Columns, seen); err != nil {
			return err
		}
		if m.Kind != KindFloat && m.Kind != KindInt {
			return fmt.Errorf("measure %q: unknown kind %q", m.Key, m.Kind)
		}
		measures[m.Key] = true
	}
	dims := map[string]bool{}
	routes := map[string]bool{}
	for _, dim := range d.Dimensions {
		if err := checkKey(dim.Key, dim.Columns, seen); err != nil {
			return err
		}
		if dim.SortBy != "" && !measures[dim.SortBy] {
			return fmt.Errorf("dimension %q sorts by unknown measure %q", dim.Key, dim.SortBy)
		}
		if dim.Route != "" {
			if routes[dim.Route] || dim.Route == "year" {
				return fmt.Errorf("dimension %q: route %q already taken", dim.Key, dim.Route)
			}
			routes[dim.Route] = true
		}
		dims[dim.Key] = true
	}
	for _, key := range d.TableOrder {
		if !dims[key] {
			return fmt.Errorf("table_order references unknown dimension %q", key)
		}
	}
	for _, total := range d.KPI.Totals {
		if total.Name == "" || !measures[total.Measure] {
			return fmt.Errorf("kpi total %q references unknown measure %q", total.Name, total.Measure)
		}
	}
	if avg := d.KPI.Average; avg != nil {
		if avg.Name == "" || !measures[avg.Numerator] {
			return fmt.Errorf("kpi average %q has unknown numerator %q", avg.Name, avg.Numerator)
		}
		if avg.Denominator != RecordsDenominator && !measures[avg.Denominator] {
			return fmt.Errorf("kpi average %q has unknown denominator %q", avg.Name, avg.Denominator)
		}
	}
	return nil
}

func checkKey(key string, columns []string, seen map[string]bool) error {
	if !keyPattern.MatchString(key) || reserved[key] {
		return fmt.Errorf("invalid key %q", key)
	}
	if seen[key] {
		return fmt.Errorf("key %q declared twice", key)
	}
	if len(columns) == 0 {
		return fmt.Errorf("key %q has no columns", key)
	}
	seen[key] = true
	return nil
}
