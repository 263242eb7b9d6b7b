package dashboard

import (
	"cmp"
	"maps"
	"slices"

	"github.com/sells-group/regionmap/internal/region"
)

// DefaultTableLimit is the number of rows shown in the ranked table.
const DefaultTableLimit = 20

// RankedRow is one row of the ranked table. Value is the ranking metric,
// nil when the region has no value; Metrics carries every known metric.
type RankedRow struct {
	Rank    int                `json:"rank"`
	Key     string             `json:"key"`
	Value   *float64           `json:"value"`
	Metrics map[string]float64 `json:"metrics"`
}

// Rank orders the active subset by metric, highest first, and keeps at most
// limit rows (DefaultTableLimit when limit <= 0). Regions without a value
// come after all regions with one. Ties, including the no-value group, keep
// catalog order.
func Rank(active []region.Record, metric string, limit int) []RankedRow {
	if limit <= 0 {
		limit = DefaultTableLimit
	}

	order := make([]region.Record, len(active))
	copy(order, active)
	slices.SortStableFunc(order, func(a, b region.Record) int {
		av, aok := a.Value(metric)
		bv, bok := b.Value(metric)
		switch {
		case aok && bok:
			return cmp.Compare(bv, av)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	})

	n := min(limit, len(order))
	rows := make([]RankedRow, n)
	for i, r := range order[:n] {
		row := RankedRow{
			Rank:    i + 1,
			Key:     r.Key,
			Metrics: maps.Clone(r.Metrics),
		}
		if row.Metrics == nil {
			row.Metrics = map[string]float64{}
		}
		if v, ok := r.Value(metric); ok {
			row.Value = ptr(v)
		}
		rows[i] = row
	}
	return rows
}
