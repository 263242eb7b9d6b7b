package dashboard

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regionmap/internal/region"
)

// AllRegions is the filter sentinel selecting every region.
const AllRegions = "All"

// ErrEmptyFilter is returned when an explicit region filter names no regions.
var ErrEmptyFilter = eris.New("dashboard: region filter is empty")

// RegionFilter is either AllRegions or a non-empty set of region keys.
// The zero value selects all regions.
type RegionFilter struct {
	keys map[string]struct{}
}

// All returns the filter that selects every region.
func All() RegionFilter {
	return RegionFilter{}
}

// Only returns a filter selecting the given keys. At least one key is
// required.
func Only(keys ...string) (RegionFilter, error) {
	if len(keys) == 0 {
		return RegionFilter{}, ErrEmptyFilter
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return RegionFilter{keys: set}, nil
}

// ParseFilter builds a filter from UI values. Any value equal to AllRegions
// selects every region, matching a multi-select where "All" can be ticked
// alongside individual regions.
func ParseFilter(values []string) (RegionFilter, error) {
	if slices.Contains(values, AllRegions) {
		return All(), nil
	}
	return Only(values...)
}

// IsAll reports whether the filter selects every region.
func (f RegionFilter) IsAll() bool {
	return f.keys == nil
}

// Contains reports whether key passes the filter.
func (f RegionFilter) Contains(key string) bool {
	if f.IsAll() {
		return true
	}
	_, ok := f.keys[key]
	return ok
}

// Values returns the filter as UI values: []string{AllRegions} or the sorted
// key set.
func (f RegionFilter) Values() []string {
	if f.IsAll() {
		return []string{AllRegions}
	}
	out := make([]string, 0, len(f.keys))
	for k := range f.keys {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Filter returns the active subset of records, preserving catalog order.
// Filter keys that match no record are ignored; the result may be empty.
func Filter(records []region.Record, f RegionFilter) []region.Record {
	if f.IsAll() {
		out := make([]region.Record, len(records))
		copy(out, records)
		return out
	}
	out := make([]region.Record, 0, len(f.keys))
	for _, r := range records {
		if f.Contains(r.Key) {
			out = append(out, r)
		}
	}
	return out
}

// Population thresholds for progressive loading by zoom level.
const (
	zoomMajorOnly    = 8
	zoomMediumAndUp  = 10
	majorPopulation  = 100000
	mediumPopulation = 50000
)

// ForZoom thins records for low zoom levels: below zoom 8 only regions with
// population above 100,000 are kept, below zoom 10 those above 50,000, and
// from zoom 10 every region. Regions without a population value are dropped
// below zoom 10.
func ForZoom(records []region.Record, zoom int) []region.Record {
	var threshold float64
	switch {
	case zoom < zoomMajorOnly:
		threshold = majorPopulation
	case zoom < zoomMediumAndUp:
		threshold = mediumPopulation
	default:
		return records
	}

	out := make([]region.Record, 0, len(records))
	for _, r := range records {
		if v, ok := r.Value(region.MetricPopulation); ok && v > threshold {
			out = append(out, r)
		}
	}
	return out
}
