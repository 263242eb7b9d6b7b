package source

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/regionmap/internal/cache"
	"github.com/sells-group/regionmap/internal/region"
)

// Loader fetches boundaries and metrics, falls back to built-in data when a
// live source fails, and joins the result into records.
type Loader struct {
	Boundaries BoundarySource
	Metrics    MetricSource
	// Extra metric sources are merged over the joined records in order.
	// A failing extra source is logged and skipped.
	Extra []MetricSource

	// Cache, if set, stores decoded boundaries under CacheKey.
	Cache    cache.Cache
	CacheKey string
	KeyField string

	// SimplifyTolerance, if positive, simplifies freshly fetched boundaries
	// (in degrees) before they are cached and joined.
	SimplifyTolerance float64

	// FallbackBoundaries and FallbackMetrics replace failed sources.
	// Defaults: FallbackBoundaries{} and NewFallbackMetrics(DefaultSeed).
	FallbackBoundaries BoundarySource
	FallbackMetrics    MetricSource
}

// Result is a loaded record set plus where it came from.
type Result struct {
	Records        []region.Record
	BoundarySource string
	MetricSource   string
	CacheHit       bool
	// Degraded is set when any fallback data was used.
	Degraded bool
	Elapsed  time.Duration
}

// Load fetches boundaries and metrics concurrently and joins them. Source
// failures are logged once as ErrDataSourceUnavailable and replaced by the
// fallback data; when the boundaries fall back the metrics do too, so the
// keys line up. Duplicate region keys are returned as an error.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "source.loader"))

	var (
		regions                []region.Region
		rows                   []region.MetricRow
		regionsErr, rowsErr    error
		cacheHit               bool
		boundaryName, rowsName string
	)

	var g errgroup.Group
	g.Go(func() error {
		regions, cacheHit, regionsErr = l.fetchRegions(ctx)
		return nil
	})
	g.Go(func() error {
		if l.Metrics == nil {
			rowsErr = eris.New("no metric source configured")
			return nil
		}
		rows, rowsErr = l.Metrics.FetchMetrics(ctx)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "source: load cancelled")
	}

	res := &Result{CacheHit: cacheHit}
	if l.Boundaries != nil {
		boundaryName = l.Boundaries.Name()
	}
	if l.Metrics != nil {
		rowsName = l.Metrics.Name()
	}

	if regionsErr != nil {
		log.Warn("source: boundaries unavailable, using fallback catalog",
			zap.String("source", boundaryName),
			zap.Error(eris.Wrap(ErrDataSourceUnavailable, regionsErr.Error())),
		)
		fb := l.fallbackBoundaries()
		regions, _ = fb.FetchRegions(ctx)
		boundaryName = fb.Name()
		res.Degraded = true

		// Live metrics are keyed for the live catalog.
		rowsErr = nil
		rows = nil
	}
	if regionsErr != nil || rowsErr != nil {
		if rowsErr != nil {
			log.Warn("source: metrics unavailable, using fallback table",
				zap.String("source", rowsName),
				zap.Error(eris.Wrap(ErrDataSourceUnavailable, rowsErr.Error())),
			)
		}
		fm := l.fallbackMetrics()
		var err error
		if rows, err = fm.FetchMetrics(ctx); err != nil {
			return nil, eris.Wrap(err, "source: fallback metrics")
		}
		rowsName = fm.Name()
		res.Degraded = true
	}

	records, err := region.Join(regions, rows)
	if err != nil {
		return nil, eris.Wrapf(err, "source: join %s with %s", boundaryName, rowsName)
	}

	records = l.mergeExtra(ctx, records)

	res.Records = records
	res.BoundarySource = boundaryName
	res.MetricSource = rowsName
	res.Elapsed = time.Since(start)

	log.Info("source: loaded records",
		zap.Int("regions", len(records)),
		zap.Int("metric_rows", len(rows)),
		zap.String("boundaries", boundaryName),
		zap.String("metrics", rowsName),
		zap.Bool("cache_hit", res.CacheHit),
		zap.Bool("degraded", res.Degraded),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// fetchRegions consults the cache before the live source and stores a fresh
// catalog after a successful fetch. Cache errors are logged and ignored.
func (l *Loader) fetchRegions(ctx context.Context) ([]region.Region, bool, error) {
	if l.Boundaries == nil {
		return nil, false, eris.New("no boundary source configured")
	}
	key := l.cacheKey()

	if l.Cache != nil {
		data, ok, err := l.Cache.Get(ctx, key)
		switch {
		case err != nil:
			zap.L().Warn("source: cache get failed", zap.Error(err))
		case ok:
			regions, err := region.DecodeRegions(data, l.KeyField)
			if err == nil && len(regions) > 0 {
				return regions, true, nil
			}
			zap.L().Warn("source: discarding unreadable cache entry", zap.Error(err))
		}
	}

	regions, err := l.Boundaries.FetchRegions(ctx)
	if err != nil {
		return nil, false, err
	}
	regions = region.Simplify(regions, l.SimplifyTolerance)

	if l.Cache != nil {
		if data, err := region.EncodeRegions(regions, l.KeyField); err != nil {
			zap.L().Warn("source: encode boundaries for cache", zap.Error(err))
		} else if err := l.Cache.Put(ctx, key, data); err != nil {
			zap.L().Warn("source: cache put failed", zap.Error(err))
		}
	}
	return regions, false, nil
}

// mergeExtra fetches the extra sources concurrently and merges them in
// declaration order.
func (l *Loader) mergeExtra(ctx context.Context, records []region.Record) []region.Record {
	if len(l.Extra) == 0 {
		return records
	}

	tables := make([][]region.MetricRow, len(l.Extra))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, src := range l.Extra {
		g.Go(func() error {
			rows, err := src.FetchMetrics(gctx)
			if err != nil {
				zap.L().Warn("source: extra metrics unavailable, skipping",
					zap.String("source", src.Name()),
					zap.Error(eris.Wrap(ErrDataSourceUnavailable, err.Error())),
				)
				return nil
			}
			mu.Lock()
			tables[i] = rows
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, rows := range tables {
		if rows != nil {
			records = region.MergeMetrics(records, rows)
		}
	}
	return records
}

func (l *Loader) cacheKey() string {
	if l.CacheKey != "" {
		return l.CacheKey
	}
	return cache.Key(l.Boundaries.Name(), l.KeyField, strconv.FormatFloat(l.SimplifyTolerance, 'g', -1, 64))
}

func (l *Loader) fallbackBoundaries() BoundarySource {
	if l.FallbackBoundaries != nil {
		return l.FallbackBoundaries
	}
	return FallbackBoundaries{}
}

func (l *Loader) fallbackMetrics() MetricSource {
	if l.FallbackMetrics != nil {
		return l.FallbackMetrics
	}
	return NewFallbackMetrics(DefaultSeed)
}
