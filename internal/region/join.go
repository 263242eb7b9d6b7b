package region

import (
	"maps"

	"github.com/rotisserie/eris"
)

// ErrDuplicateRegionKey is returned when a boundary catalog contains the same
// key more than once.
var ErrDuplicateRegionKey = eris.New("region: duplicate region key")

// Join left-joins regions with metric rows on exact, case-sensitive key
// match. Every region yields exactly one record, in catalog order; a region
// without a matching row gets an empty metric map. When several rows share a
// key the last one wins.
func Join(regions []Region, rows []MetricRow) ([]Record, error) {
	seen := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		if _, dup := seen[r.Key]; dup {
			return nil, eris.Wrapf(ErrDuplicateRegionKey, "key %q", r.Key)
		}
		seen[r.Key] = struct{}{}
	}

	byKey := make(map[string]map[string]float64, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row.Metrics
	}

	records := make([]Record, len(regions))
	for i, r := range regions {
		metrics := make(map[string]float64, len(byKey[r.Key]))
		maps.Copy(metrics, byKey[r.Key])
		records[i] = Record{
			Key:      r.Key,
			Geometry: r.Geometry,
			Metrics:  metrics,
		}
	}
	return records, nil
}

// MergeMetrics enriches an existing record set with another metric table
// using the same left-join rules as Join. Metrics from rows replace metrics
// of the same name; rows whose key matches no record are ignored. The input
// records are not modified.
func MergeMetrics(records []Record, rows []MetricRow) []Record {
	byKey := make(map[string]map[string]float64, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row.Metrics
	}

	out := make([]Record, len(records))
	for i, r := range records {
		metrics := make(map[string]float64, len(r.Metrics)+len(byKey[r.Key]))
		maps.Copy(metrics, r.Metrics)
		maps.Copy(metrics, byKey[r.Key])
		out[i] = Record{
			Key:      r.Key,
			Geometry: r.Geometry,
			Metrics:  metrics,
		}
	}
	return out
}
