package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regionmap/internal/region"
)

func TestAggregate(t *testing.T) {
	active := []region.Record{
		rec("a", 0, f(40)),
		rec("b", 1, f(10)),
		rec("c", 2, f(30)),
		rec("d", 3, f(20)),
	}

	s, err := Aggregate(active, region.MetricPopulation)
	require.NoError(t, err)
	assert.InDelta(t, 25, s.Mean, 1e-9)
	assert.InDelta(t, 25, s.Median, 1e-9)
	assert.InDelta(t, 10, s.Min, 1e-9)
	assert.InDelta(t, 40, s.Max, 1e-9)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 4, s.Values)
}

func TestAggregate_OddMedian(t *testing.T) {
	active := []region.Record{rec("a", 0, f(9)), rec("b", 1, f(1)), rec("c", 2, f(4))}

	s, err := Aggregate(active, region.MetricPopulation)
	require.NoError(t, err)
	assert.InDelta(t, 4, s.Median, 1e-9)
}

func TestAggregate_NullsCountedButExcluded(t *testing.T) {
	s, err := Aggregate(scenario(), region.MetricPopulation)
	require.NoError(t, err)
	assert.InDelta(t, 200, s.Mean, 1e-9)
	assert.InDelta(t, 200, s.Median, 1e-9)
	assert.InDelta(t, 100, s.Min, 1e-9)
	assert.InDelta(t, 300, s.Max, 1e-9)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.Values)
}

func TestAggregate_EmptySelection(t *testing.T) {
	s, err := Aggregate(nil, region.MetricPopulation)
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, 0, s.Count)
}

func TestAggregate_NoValues(t *testing.T) {
	active := []region.Record{rec("a", 0, nil), rec("b", 1, nil)}

	s, err := Aggregate(active, region.MetricPopulation)
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 0, s.Values)
}
