package source

import (
	"context"
	"math/rand/v2"

	"github.com/sells-group/regionmap/internal/region"
)

// DefaultSeed makes the synthetic tables reproducible across runs.
const DefaultSeed = 42

// SampleKeys are the NSW LGA names the sample metric table covers.
var SampleKeys = []string{
	"Sydney", "Newcastle", "Wollongong", "Central Coast",
	"Lake Macquarie", "Blacktown", "Canterbury-Bankstown",
	"Parramatta", "Northern Beaches", "Sutherland Shire",
	"Hills Shire", "Liverpool", "Penrith", "Fairfield",
	"Campbelltown", "Cumberland", "Georges River", "Bayside",
	"Inner West", "Randwick", "Waverley", "Woollahra",
}

// Range describes how one metric column is sampled: integers in [Lo, Hi)
// when Integer is set, otherwise uniform floats in [Lo, Hi).
type Range struct {
	Metric  string
	Lo, Hi  float64
	Integer bool
}

// SampleRanges are the column ranges of the sample metric table.
var SampleRanges = []Range{
	{Metric: region.MetricPopulation, Lo: 50000, Hi: 500000, Integer: true},
	{Metric: region.MetricMedianIncome, Lo: 40000, Hi: 120000, Integer: true},
	{Metric: region.MetricUnemploymentRate, Lo: 2, Hi: 8},
	{Metric: region.MetricHousingMedian, Lo: 400000, Hi: 2000000, Integer: true},
	{Metric: region.MetricCrimeRate, Lo: 20, Hi: 100},
}

// FallbackRanges are the column ranges used alongside FallbackBoundaries.
var FallbackRanges = []Range{
	{Metric: region.MetricPopulation, Lo: 20000, Hi: 500000, Integer: true},
	{Metric: region.MetricMedianIncome, Lo: 40000, Hi: 100000, Integer: true},
	{Metric: region.MetricUnemploymentRate, Lo: 2, Hi: 8},
	{Metric: region.MetricHousingMedian, Lo: 300000, Hi: 1500000, Integer: true},
	{Metric: region.MetricCrimeRate, Lo: 20, Hi: 100},
}

// SyntheticMetrics generates a deterministic metric table. Columns are
// sampled one after another from a single PCG stream, so the same keys,
// ranges and seed always produce the same table.
type SyntheticMetrics struct {
	Keys   []string
	Ranges []Range
	Seed   uint64
}

// NewSampleMetrics returns the sample table over SampleKeys.
func NewSampleMetrics(seed uint64) *SyntheticMetrics {
	return &SyntheticMetrics{Keys: SampleKeys, Ranges: SampleRanges, Seed: seed}
}

// NewFallbackMetrics returns the table that pairs with FallbackBoundaries.
func NewFallbackMetrics(seed uint64) *SyntheticMetrics {
	return &SyntheticMetrics{Keys: FallbackKeys(), Ranges: FallbackRanges, Seed: seed}
}

// Name implements MetricSource.
func (s *SyntheticMetrics) Name() string { return "synthetic" }

// FetchMetrics implements MetricSource. It never fails.
func (s *SyntheticMetrics) FetchMetrics(context.Context) ([]region.MetricRow, error) {
	return s.Generate(), nil
}

// Generate builds the table.
func (s *SyntheticMetrics) Generate() []region.MetricRow {
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed))

	rows := make([]region.MetricRow, len(s.Keys))
	for i, k := range s.Keys {
		rows[i] = region.MetricRow{Key: k, Metrics: make(map[string]float64, len(s.Ranges))}
	}
	for _, r := range s.Ranges {
		for i := range rows {
			rows[i].Metrics[r.Metric] = r.sample(rng)
		}
	}
	return rows
}

func (r Range) sample(rng *rand.Rand) float64 {
	span := r.Hi - r.Lo
	if span <= 0 {
		return r.Lo
	}
	if r.Integer {
		return r.Lo + float64(rng.Int64N(int64(span)))
	}
	return r.Lo + rng.Float64()*span
}
