package dashboard

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/regionmap/internal/region"
)

// rec builds a record with a 1x1 square at (x, 0) and the given population;
// a nil population leaves the metric null.
func rec(key string, x float64, population *float64) region.Record {
	flat := []float64{x, 0, x + 1, 0, x + 1, 1, x, 1, x, 0}
	r := region.Record{
		Key:      key,
		Geometry: geom.NewMultiPolygonFlat(geom.XY, flat, [][]int{{len(flat)}}),
		Metrics:  map[string]float64{},
	}
	if population != nil {
		r.Metrics[region.MetricPopulation] = *population
	}
	return r
}

func f(v float64) *float64 { return &v }

func popDef() region.MetricDef {
	def, _ := region.DefaultCatalog().Get(region.MetricPopulation)
	return def
}

// scenario is the catalog {A:100, B:null, C:300}.
func scenario() []region.Record {
	return []region.Record{
		rec("A", 0, f(100)),
		rec("B", 1, nil),
		rec("C", 2, f(300)),
	}
}
