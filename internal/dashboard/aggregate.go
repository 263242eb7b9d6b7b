package dashboard

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regionmap/internal/region"
)

// ErrEmptySelection signals that no statistics exist for the active subset.
// It is an expected outcome the UI renders as an empty state.
var ErrEmptySelection = eris.New("dashboard: empty selection")

// StatsSummary holds summary statistics of one metric over the active
// subset. Count includes regions with no value; Values counts only those
// that contributed to Mean, Median, Min and Max.
type StatsSummary struct {
	Metric string  `json:"metric"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
	Values int     `json:"values"`
}

// Aggregate computes summary statistics for the metric over the active
// subset. It returns ErrEmptySelection when the subset is empty, and also
// when no region in it has a value (the returned summary then still carries
// Count).
func Aggregate(active []region.Record, metric string) (StatsSummary, error) {
	s := StatsSummary{Metric: metric, Count: len(active)}
	if len(active) == 0 {
		return s, ErrEmptySelection
	}

	values := make([]float64, 0, len(active))
	for _, r := range active {
		if v, ok := r.Value(metric); ok {
			values = append(values, v)
		}
	}
	s.Values = len(values)
	if len(values) == 0 {
		return s, eris.Wrapf(ErrEmptySelection, "no values for %s", metric)
	}

	slices.Sort(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	s.Mean = sum / float64(len(values))
	s.Median = median(values)
	s.Min = values[0]
	s.Max = values[len(values)-1]
	return s, nil
}

// median expects sorted, non-empty input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
