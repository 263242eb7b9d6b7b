package dashboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regionmap/internal/region"
)

func TestRank_TruncatesToLimit(t *testing.T) {
	var active []region.Record
	for i := range 25 {
		// Distinct values in scrambled order.
		v := float64((i * 7) % 25)
		active = append(active, rec(fmt.Sprintf("r%02d", i), float64(i), f(v)))
	}

	rows := Rank(active, region.MetricPopulation, 20)
	require.Len(t, rows, 20)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Rank)
		require.NotNil(t, row.Value)
		assert.InDelta(t, float64(24-i), *row.Value, 1e-9, "prefix of full descending order")
		if i > 0 {
			assert.Less(t, *row.Value, *rows[i-1].Value)
		}
	}

	full := Rank(active, region.MetricPopulation, 100)
	require.Len(t, full, 25)
	for i := range rows {
		assert.Equal(t, full[i].Key, rows[i].Key)
	}
}

func TestRank_DefaultLimit(t *testing.T) {
	var active []region.Record
	for i := range 30 {
		active = append(active, rec(fmt.Sprintf("r%02d", i), float64(i), f(float64(i))))
	}
	assert.Len(t, Rank(active, region.MetricPopulation, 0), DefaultTableLimit)
}

func TestRank_NullsLastInCatalogOrder(t *testing.T) {
	active := []region.Record{
		rec("n1", 0, nil),
		rec("low", 1, f(1)),
		rec("n2", 2, nil),
		rec("high", 3, f(9)),
		rec("n3", 4, nil),
	}

	rows := Rank(active, region.MetricPopulation, 20)
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	assert.Equal(t, []string{"high", "low", "n1", "n2", "n3"}, keys)
	assert.Nil(t, rows[2].Value)
}

func TestRank_TiesKeepCatalogOrder(t *testing.T) {
	active := []region.Record{rec("x", 0, f(5)), rec("y", 1, f(5)), rec("z", 2, f(7))}

	rows := Rank(active, region.MetricPopulation, 20)
	assert.Equal(t, "z", rows[0].Key)
	assert.Equal(t, "x", rows[1].Key)
	assert.Equal(t, "y", rows[2].Key)
}

func TestRank_ExposesAllMetricsAndCopies(t *testing.T) {
	r := rec("a", 0, f(10))
	r.Metrics[region.MetricCrimeRate] = 42.5
	rows := Rank([]region.Record{r}, region.MetricPopulation, 5)

	require.Len(t, rows, 1)
	assert.Equal(t, map[string]float64{region.MetricPopulation: 10, region.MetricCrimeRate: 42.5}, rows[0].Metrics)

	rows[0].Metrics[region.MetricPopulation] = 0
	assert.InDelta(t, 10, r.Metrics[region.MetricPopulation], 1e-9)
}

func TestRank_Empty(t *testing.T) {
	rows := Rank(nil, region.MetricPopulation, 20)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
