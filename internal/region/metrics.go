package region

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Known metric names.
const (
	MetricPopulation       = "population"
	MetricMedianIncome     = "median_income"
	MetricUnemploymentRate = "unemployment_rate"
	MetricHousingMedian    = "housing_median"
	MetricCrimeRate        = "crime_rate"
)

// Kind controls how a metric value is formatted for display.
type Kind string

// Metric kinds.
const (
	KindCount    Kind = "count"
	KindCurrency Kind = "currency"
	KindRate     Kind = "rate"
)

// MetricDef describes one selectable metric.
type MetricDef struct {
	Name   string `yaml:"name" json:"name"`
	Label  string `yaml:"label" json:"label"`
	Kind   Kind   `yaml:"kind" json:"kind"`
	Suffix string `yaml:"suffix,omitempty" json:"suffix,omitempty"`
}

// DefaultMetricDefs returns the built-in metric set in display order.
func DefaultMetricDefs() []MetricDef {
	return []MetricDef{
		{Name: MetricPopulation, Label: "Population", Kind: KindCount},
		{Name: MetricMedianIncome, Label: "Median Income", Kind: KindCurrency},
		{Name: MetricUnemploymentRate, Label: "Unemployment Rate (%)", Kind: KindRate, Suffix: "%"},
		{Name: MetricHousingMedian, Label: "Housing Median Price", Kind: KindCurrency},
		{Name: MetricCrimeRate, Label: "Crime Rate", Kind: KindRate},
	}
}

// Catalog is the ordered set of known metrics.
type Catalog struct {
	defs   []MetricDef
	byName map[string]int
}

// NewCatalog builds a catalog from defs. Names must be unique and non-empty.
// A def without a label uses its name; a def without a kind is a count.
func NewCatalog(defs []MetricDef) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, eris.New("region: metric name is required")
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, eris.Errorf("region: duplicate metric %q", d.Name)
		}
		if d.Label == "" {
			d.Label = d.Name
		}
		if d.Kind == "" {
			d.Kind = KindCount
		}
		c.byName[d.Name] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	if len(c.defs) == 0 {
		return nil, eris.New("region: metric catalog is empty")
	}
	return c, nil
}

// DefaultCatalog returns a catalog of the built-in metrics.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(DefaultMetricDefs())
	return c
}

// Has reports whether name is a known metric.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Get returns the definition for name.
func (c *Catalog) Get(name string) (MetricDef, bool) {
	i, ok := c.byName[name]
	if !ok {
		return MetricDef{}, false
	}
	return c.defs[i], true
}

// Defs returns a copy of the definitions in display order.
func (c *Catalog) Defs() []MetricDef {
	out := make([]MetricDef, len(c.defs))
	copy(out, c.defs)
	return out
}

// Names returns metric names in display order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.defs))
	for i, d := range c.defs {
		names[i] = d.Name
	}
	return names
}

type metricFile struct {
	Metrics []MetricDef `yaml:"metrics"`
}

// LoadMetricDefs reads extra metric definitions from a YAML file and appends
// them to the built-in set. A def whose name matches a built-in metric
// replaces it in place.
//
//	metrics:
//	  - name: vaccination_rate
//	    label: Vaccination Rate
//	    kind: rate
//	    suffix: "%"
func LoadMetricDefs(path string) ([]MetricDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: read metric file %s", path)
	}

	var f metricFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "region: parse metric file %s", path)
	}

	defs := DefaultMetricDefs()
	idx := make(map[string]int, len(defs))
	for i, d := range defs {
		idx[d.Name] = i
	}
	for _, d := range f.Metrics {
		if i, ok := idx[d.Name]; ok {
			defs[i] = d
			continue
		}
		idx[d.Name] = len(defs)
		defs = append(defs, d)
	}
	return defs, nil
}
