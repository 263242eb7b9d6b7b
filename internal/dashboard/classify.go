package dashboard

import (
	"fmt"
	"math"

	"github.com/sells-group/regionmap/internal/region"
)

// Ramp is the 8-step choropleth colour ramp, lightest to darkest.
var Ramp = [8]string{
	"#FFEDA0", "#FED976", "#FEB24C", "#FD8D3C",
	"#FC4E2A", "#E31A1C", "#BD0026", "#800026",
}

// NoDataBucket and NoDataColor mark regions without a value for the metric.
const (
	NoDataBucket = -1
	NoDataColor  = "#CCCCCC"
)

// ClassifiedRegion is the choropleth styling for one region.
type ClassifiedRegion struct {
	Key        string   `json:"key"`
	Bucket     int      `json:"bucket"`
	Color      string   `json:"color"`
	Value      *float64 `json:"value"`
	Normalized *float64 `json:"normalized,omitempty"`
}

// LegendEntry describes the value range covered by one ramp bucket.
type LegendEntry struct {
	Bucket int     `json:"bucket"`
	Color  string  `json:"color"`
	From   float64 `json:"from"`
	To     float64 `json:"to"`
}

// Classification is the classifier output for one pipeline run.
type Classification struct {
	Metric  string             `json:"metric"`
	Label   string             `json:"label"`
	Min     *float64           `json:"min"`
	Max     *float64           `json:"max"`
	Regions []ClassifiedRegion `json:"regions"`
	Legend  []LegendEntry      `json:"legend"`
	Empty   bool               `json:"empty"`
}

// Normalize maps v onto [0,1] relative to lo and hi. When every value is
// equal (hi <= lo) it returns the mid-scale 0.5.
func Normalize(v, lo, hi float64) float64 {
	if hi > lo {
		return (v - lo) / (hi - lo)
	}
	return 0.5
}

// BucketFor maps a normalized value to a ramp index in [0, 7].
func BucketFor(normalized float64) int {
	idx := int(math.Floor(normalized * float64(len(Ramp)-1)))
	return min(max(idx, 0), len(Ramp)-1)
}

// Classify assigns a ramp bucket to every record of the active subset for
// the given metric. Records without a value get the no-data bucket and do
// not take part in the min/max range. The input is not modified.
func Classify(active []region.Record, def region.MetricDef) Classification {
	c := Classification{
		Metric:  def.Name,
		Label:   fmt.Sprintf("%s Choropleth", def.Label),
		Regions: make([]ClassifiedRegion, 0, len(active)),
		Legend:  []LegendEntry{},
		Empty:   len(active) == 0,
	}

	lo, hi, n := valueRange(active, def.Name)
	if n > 0 {
		c.Min, c.Max = ptr(lo), ptr(hi)
		c.Legend = legend(lo, hi)
	}

	for _, r := range active {
		v, ok := r.Value(def.Name)
		if !ok {
			c.Regions = append(c.Regions, ClassifiedRegion{
				Key:    r.Key,
				Bucket: NoDataBucket,
				Color:  NoDataColor,
			})
			continue
		}
		norm := Normalize(v, lo, hi)
		b := BucketFor(norm)
		c.Regions = append(c.Regions, ClassifiedRegion{
			Key:        r.Key,
			Bucket:     b,
			Color:      Ramp[b],
			Value:      ptr(v),
			Normalized: ptr(norm),
		})
	}
	return c
}

// valueRange returns min, max and the number of non-null values.
func valueRange(records []region.Record, metric string) (lo, hi float64, n int) {
	for _, r := range records {
		v, ok := r.Value(metric)
		if !ok {
			continue
		}
		if n == 0 || v < lo {
			lo = v
		}
		if n == 0 || v > hi {
			hi = v
		}
		n++
	}
	return lo, hi, n
}

// legend splits [lo, hi] into the value ranges that land in each bucket.
// Bucket i covers normalized values [i/7, (i+1)/7); the last bucket only
// holds the maximum.
func legend(lo, hi float64) []LegendEntry {
	steps := float64(len(Ramp) - 1)
	entries := make([]LegendEntry, len(Ramp))
	for i := range Ramp {
		from := lo + (hi-lo)*float64(i)/steps
		to := lo + (hi-lo)*math.Min(float64(i+1)/steps, 1)
		entries[i] = LegendEntry{Bucket: i, Color: Ramp[i], From: from, To: to}
	}
	return entries
}

func ptr(v float64) *float64 {
	return &v
}
