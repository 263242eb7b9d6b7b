package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regionmap/internal/config"
	"github.com/sells-group/regionmap/internal/source"
)

const twoRegionGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Alpha"},
     "geometry": {"type": "Polygon", "coordinates": [[[150,-34],[151,-34],[151,-33],[150,-33],[150,-34]]]}},
    {"type": "Feature", "properties": {"name": "Beta"},
     "geometry": {"type": "Polygon", "coordinates": [[[151,-34],[152,-34],[152,-33],[151,-33],[151,-34]]]}}
  ]
}`

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Log:    config.LogConfig{Level: "error", Format: "json"},
		Source: config.SourceConfig{
			BoundaryKeyField: "name",
			MetricsKeyColumn: "key",
			TimeoutSecs:      5,
		},
		Cache: config.CacheConfig{Driver: "none"},
		Dashboard: config.DashboardConfig{
			DefaultMetric: "population",
			TableLimit:    20,
			DefaultYear:   2023,
			YearMin:       2015,
			YearMax:       2023,
			Seed:          42,
		},
	}
}

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildBoundarySource(t *testing.T) {
	client := source.NewClient(source.ClientOptions{})

	t.Run("shapefile wins", func(t *testing.T) {
		sc := config.SourceConfig{ShapefilePath: "lga.zip", BoundaryURL: "http://example.com/lga.geojson"}
		_, ok := buildBoundarySource(client, sc).(*source.ShapefileSource)
		assert.True(t, ok)
	})

	t.Run("geojson", func(t *testing.T) {
		sc := config.SourceConfig{BoundaryURL: "http://example.com/lga.geojson", BoundaryKeyField: "lga_name"}
		src, ok := buildBoundarySource(client, sc).(*source.GeoJSONSource)
		require.True(t, ok)
		assert.Equal(t, "lga_name", src.KeyField)
	})

	t.Run("fallback", func(t *testing.T) {
		_, ok := buildBoundarySource(client, config.SourceConfig{}).(source.FallbackBoundaries)
		assert.True(t, ok)
	})
}

func TestBuildMetricSources(t *testing.T) {
	client := source.NewClient(source.ClientOptions{})
	live := source.NewGeoJSONSource(client, "lga.geojson", "name")

	t.Run("csv path", func(t *testing.T) {
		primary, extra := buildMetricSources(client, config.SourceConfig{MetricsPath: "m.csv"}, 42, live)
		_, ok := primary.(*source.CSVMetrics)
		assert.True(t, ok)
		assert.Empty(t, extra)
	})

	t.Run("xlsx url with query", func(t *testing.T) {
		sc := config.SourceConfig{MetricsURL: "http://example.com/m.XLSX?download=1"}
		primary, _ := buildMetricSources(client, sc, 42, live)
		_, ok := primary.(*source.XLSXMetrics)
		assert.True(t, ok)
	})

	t.Run("ckan only", func(t *testing.T) {
		sc := config.SourceConfig{CKANDataset: "lga-stats", CKANBaseURL: "http://example.com"}
		primary, extra := buildMetricSources(client, sc, 42, live)
		_, ok := primary.(*source.CKANMetrics)
		assert.True(t, ok)
		assert.Empty(t, extra)
	})

	t.Run("table plus ckan", func(t *testing.T) {
		sc := config.SourceConfig{MetricsPath: "m.csv", CKANDataset: "lga-stats"}
		primary, extra := buildMetricSources(client, sc, 42, live)
		_, ok := primary.(*source.CSVMetrics)
		assert.True(t, ok)
		require.Len(t, extra, 1)
		_, ok = extra[0].(*source.CKANMetrics)
		assert.True(t, ok)
	})

	t.Run("synthetic for live boundaries", func(t *testing.T) {
		primary, _ := buildMetricSources(client, config.SourceConfig{}, 7, live)
		s, ok := primary.(*source.SyntheticMetrics)
		require.True(t, ok)
		assert.Equal(t, source.SampleKeys, s.Keys)
	})

	t.Run("synthetic for fallback boundaries", func(t *testing.T) {
		primary, _ := buildMetricSources(client, config.SourceConfig{}, 7, source.FallbackBoundaries{})
		s, ok := primary.(*source.SyntheticMetrics)
		require.True(t, ok)
		assert.Equal(t, source.FallbackKeys(), s.Keys)
	})
}

func TestInitDashboard_Fallback(t *testing.T) {
	withConfig(t, testConfig())

	env, err := initDashboard(context.Background(), "show")
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, "fallback", env.Load.BoundarySource)
	assert.Equal(t, "synthetic", env.Load.MetricSource)
	assert.Nil(t, env.Cache)
	assert.Len(t, env.Dashboard.Records(), len(source.FallbackCities))

	view := env.Dashboard.Current()
	assert.Equal(t, "population", view.Selection.Metric)
	assert.Equal(t, 2023, view.Selection.Year)
	assert.Equal(t, len(source.FallbackCities), view.ActiveCount)
	assert.False(t, view.Empty)
}

func TestInitDashboard_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	c := testConfig()
	c.Source.BoundaryURL = writeFile(t, dir, "lga.geojson", twoRegionGeoJSON)
	c.Source.MetricsPath = writeFile(t, dir, "metrics.csv", "key,population,median_income\nAlpha,100,50000\nBeta,200,\n")
	c.Cache = config.CacheConfig{Driver: "memory", MaxEntries: 4}
	withConfig(t, c)

	env, err := initDashboard(context.Background(), "show")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Cache)
	assert.False(t, env.Load.Degraded)

	table := env.Dashboard.Current().Table
	require.Len(t, table, 2)
	assert.Equal(t, "Beta", table[0].Key)
	assert.Equal(t, "Alpha", table[1].Key)

	view, err := env.Dashboard.SetMetric("median_income")
	require.NoError(t, err)
	require.NotNil(t, view.Stats)
	assert.Equal(t, 2, view.Stats.Count)
	assert.Equal(t, 1, view.Stats.Values)
}

func TestInitDashboard_SQLiteCacheHitsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	c := testConfig()
	c.Source.BoundaryURL = writeFile(t, dir, "lga.geojson", twoRegionGeoJSON)
	c.Source.MetricsPath = writeFile(t, dir, "metrics.csv", "key,population\nAlpha,100\nBeta,200\n")
	c.Cache = config.CacheConfig{Driver: "sqlite", DSN: filepath.Join(dir, "cache", config.DefaultCacheFile)}
	withConfig(t, c)

	first, err := initDashboard(context.Background(), "show")
	require.NoError(t, err)
	assert.False(t, first.Load.CacheHit)
	first.Close()

	// A later run reads the boundaries written by the first one.
	second, err := initDashboard(context.Background(), "show")
	require.NoError(t, err)
	defer second.Close()
	assert.True(t, second.Load.CacheHit)
	assert.Len(t, second.Dashboard.Records(), 2)
}

func TestInitDashboard_MetricsFile(t *testing.T) {
	dir := t.TempDir()
	c := testConfig()
	c.Dashboard.MetricsFile = writeFile(t, dir, "metrics.yaml", "metrics:\n  - name: vaccination_rate\n    label: Vaccination Rate\n    kind: rate\n    suffix: \"%\"\n")
	withConfig(t, c)

	env, err := initDashboard(context.Background(), "show")
	require.NoError(t, err)
	defer env.Close()

	assert.True(t, env.Dashboard.Catalog().Has("vaccination_rate"))
	assert.True(t, env.Dashboard.Catalog().Has("population"))
}

func TestInitDashboard_Errors(t *testing.T) {
	t.Run("unknown mode", func(t *testing.T) {
		withConfig(t, testConfig())
		_, err := initDashboard(context.Background(), "enrichment")
		assert.Error(t, err)
	})

	t.Run("unknown default metric", func(t *testing.T) {
		c := testConfig()
		c.Dashboard.DefaultMetric = "rainfall"
		withConfig(t, c)
		_, err := initDashboard(context.Background(), "show")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "build dashboard")
	})

	t.Run("default year outside range", func(t *testing.T) {
		c := testConfig()
		c.Dashboard.DefaultYear = 2030
		withConfig(t, c)
		_, err := initDashboard(context.Background(), "show")
		assert.Error(t, err)
	})

	t.Run("missing metrics file", func(t *testing.T) {
		c := testConfig()
		c.Dashboard.MetricsFile = filepath.Join(t.TempDir(), "nope.yaml")
		withConfig(t, c)
		_, err := initDashboard(context.Background(), "show")
		assert.Error(t, err)
	})
}

func TestInitDashboard_CacheOpenFailureIsNotFatal(t *testing.T) {
	c := testConfig()
	c.Cache = config.CacheConfig{Driver: "redis", DSN: "not-a-redis-url"}
	withConfig(t, c)

	env, err := initDashboard(context.Background(), "show")
	require.NoError(t, err)
	defer env.Close()
	assert.Nil(t, env.Cache)
}
