package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regionmap/internal/cache"
	"github.com/sells-group/regionmap/internal/config"
	"github.com/sells-group/regionmap/internal/dashboard"
	"github.com/sells-group/regionmap/internal/region"
	"github.com/sells-group/regionmap/internal/source"
)

// dashboardEnv holds the loaded record set, the dashboard built over it and
// the boundary cache needed by the serve/show/export commands.
type dashboardEnv struct {
	Dashboard *dashboard.Dashboard
	Load      *source.Result
	Cache     cache.Cache // may be nil
}

// Close releases resources held by the dashboard environment.
func (de *dashboardEnv) Close() {
	if de.Cache != nil {
		_ = de.Cache.Close()
	}
}

// initDashboard validates the config for mode, loads boundaries and metrics
// and builds the Dashboard for the default selection. Callers should defer
// env.Close().
func initDashboard(ctx context.Context, mode string) (*dashboardEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(cfg.Dashboard)
	if err != nil {
		return nil, err
	}

	client := source.NewClient(source.ClientOptions{
		Timeout:   cfg.Source.Timeout(),
		RateLimit: cfg.Source.RateLimit,
	})

	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		// Boundaries still load without a cache.
		zap.L().Warn("boundary cache unavailable", zap.String("driver", cfg.Cache.Driver), zap.Error(err))
		c = nil
	}

	boundaries := buildBoundarySource(client, cfg.Source)
	metrics, extra := buildMetricSources(client, cfg.Source, cfg.Dashboard.Seed, boundaries)

	loader := &source.Loader{
		Boundaries:        boundaries,
		Metrics:           metrics,
		Extra:             extra,
		Cache:             c,
		CacheKey:          cfg.Cache.Key,
		KeyField:          cfg.Source.BoundaryKeyField,
		SimplifyTolerance: cfg.Source.SimplifyTolerance,
		FallbackMetrics:   source.NewFallbackMetrics(cfg.Dashboard.Seed),
	}

	res, err := loader.Load(ctx)
	if err != nil {
		closeCache(c)
		return nil, eris.Wrap(err, "load records")
	}

	initial := dashboard.Selection{
		Metric:  cfg.Dashboard.DefaultMetric,
		Regions: dashboard.All(),
		Year:    cfg.Dashboard.DefaultYear,
	}
	d, err := dashboard.New(res.Records, catalog, initial,
		dashboard.WithTableLimit(cfg.Dashboard.TableLimit),
		dashboard.WithYearRange(cfg.Dashboard.YearMin, cfg.Dashboard.YearMax),
	)
	if err != nil {
		closeCache(c)
		return nil, eris.Wrap(err, "build dashboard")
	}

	return &dashboardEnv{Dashboard: d, Load: res, Cache: c}, nil
}

func closeCache(c cache.Cache) {
	if c != nil {
		_ = c.Close()
	}
}

func loadCatalog(dc config.DashboardConfig) (*region.Catalog, error) {
	if dc.MetricsFile == "" {
		return region.DefaultCatalog(), nil
	}
	defs, err := region.LoadMetricDefs(dc.MetricsFile)
	if err != nil {
		return nil, err
	}
	return region.NewCatalog(defs)
}

// buildBoundarySource picks a shapefile, then a GeoJSON document, then the
// built-in city buffers.
func buildBoundarySource(client *source.Client, sc config.SourceConfig) source.BoundarySource {
	switch {
	case sc.ShapefilePath != "":
		return source.NewShapefileSource(client, sc.ShapefilePath, sc.BoundaryKeyField, sc.TempDir)
	case sc.BoundaryURL != "":
		return source.NewGeoJSONSource(client, sc.BoundaryURL, sc.BoundaryKeyField)
	default:
		return source.FallbackBoundaries{}
	}
}

// buildMetricSources picks the primary metric table and any extra tables
// merged over it. A local or remote file wins over CKAN; when both are set
// the CKAN dataset is merged as an extra. Without either, synthetic values
// keyed to the boundary set are generated.
func buildMetricSources(client *source.Client, sc config.SourceConfig, seed uint64, boundaries source.BoundarySource) (source.MetricSource, []source.MetricSource) {
	var table source.MetricSource
	loc := sc.MetricsPath
	if loc == "" {
		loc = sc.MetricsURL
	}
	if loc != "" {
		table = tableSource(client, loc, sc.MetricsKeyColumn)
	}

	var ckan source.MetricSource
	if sc.CKANDataset != "" {
		ckan = source.NewCKANMetrics(client, sc.CKANBaseURL, sc.CKANDataset, sc.MetricsKeyColumn)
	}

	switch {
	case table != nil && ckan != nil:
		return table, []source.MetricSource{ckan}
	case table != nil:
		return table, nil
	case ckan != nil:
		return ckan, nil
	}

	if _, ok := boundaries.(source.FallbackBoundaries); ok {
		return source.NewFallbackMetrics(seed), nil
	}
	return source.NewSampleMetrics(seed), nil
}

func tableSource(client *source.Client, loc, keyColumn string) source.MetricSource {
	// Strip any query string before looking at the extension.
	ext := loc
	if i := strings.IndexByte(ext, '?'); i >= 0 {
		ext = ext[:i]
	}
	switch strings.ToLower(filepath.Ext(ext)) {
	case ".xlsx":
		return source.NewXLSXMetrics(client, loc, "", keyColumn)
	default:
		return source.NewCSVMetrics(client, loc, keyColumn)
	}
}
