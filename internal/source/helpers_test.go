package source

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/regionmap/internal/region"
	"github.com/sells-group/regionmap/internal/resilience"
)

func testClient() *Client {
	return NewClient(ClientOptions{
		Timeout: 5 * time.Second,
		Retry:   resilience.Policy{Attempts: 3, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	})
}

func square(lon, lat, size float64) *geom.MultiPolygon {
	flat := []float64{
		lon, lat,
		lon + size, lat,
		lon + size, lat + size,
		lon, lat + size,
		lon, lat,
	}
	return geom.NewMultiPolygonFlat(geom.XY, flat, [][]int{{len(flat)}}).SetSRID(region.SRID)
}

func geoJSONFixture(t *testing.T, keyField string, keys ...string) []byte {
	t.Helper()
	regions := make([]region.Region, len(keys))
	for i, k := range keys {
		regions[i] = region.Region{Key: k, Geometry: square(float64(i), 0, 1)}
	}
	data, err := region.EncodeRegions(regions, keyField)
	require.NoError(t, err)
	return data
}

type stubBoundaries struct {
	name    string
	regions []region.Region
	err     error
	calls   atomic.Int32
}

func (s *stubBoundaries) Name() string { return s.name }

func (s *stubBoundaries) FetchRegions(context.Context) ([]region.Region, error) {
	s.calls.Add(1)
	return s.regions, s.err
}

type stubMetrics struct {
	name string
	rows []region.MetricRow
	err  error
}

func (s *stubMetrics) Name() string { return s.name }

func (s *stubMetrics) FetchMetrics(context.Context) ([]region.MetricRow, error) {
	return s.rows, s.err
}

func regionsFor(keys ...string) []region.Region {
	regions := make([]region.Region, len(keys))
	for i, k := range keys {
		regions[i] = region.Region{Key: k, Geometry: square(float64(i), 0, 1)}
	}
	return regions
}
