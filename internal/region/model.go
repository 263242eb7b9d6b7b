// Package region models boundary regions, their tabular metrics, and the
// left join that combines them into the record set the dashboard reads.
package region

import (
	"github.com/twpayne/go-geom"
)

// SRID is the spatial reference used for every region geometry (WGS84).
const SRID = 4326

// Region is a named boundary loaded from a catalog source. X is longitude,
// Y is latitude.
type Region struct {
	Key      string
	Geometry *geom.MultiPolygon
}

// MetricRow holds the named metrics for one region key.
type MetricRow struct {
	Key     string             `json:"key"`
	Metrics map[string]float64 `json:"metrics"`
}

// Record is a region joined with its metrics. A metric missing from Metrics
// is null for that region.
type Record struct {
	Key      string             `json:"key"`
	Geometry *geom.MultiPolygon `json:"-"`
	Metrics  map[string]float64 `json:"metrics"`
}

// Value returns the metric value and whether it is present.
func (r Record) Value(metric string) (float64, bool) {
	v, ok := r.Metrics[metric]
	return v, ok
}

// Keys returns the record keys in order.
func Keys(records []Record) []string {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Key
	}
	return keys
}
