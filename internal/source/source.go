// Package source loads region boundaries and per-region metric tables from
// open-data endpoints, local files and built-in generators, and combines
// them into the record set the dashboard runs on.
package source

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regionmap/internal/region"
)

// ErrDataSourceUnavailable marks a boundary or metric source that could not
// be read. The loader logs it once and substitutes the fallback data.
var ErrDataSourceUnavailable = eris.New("source: data source unavailable")

// BoundarySource yields the region catalog.
type BoundarySource interface {
	Name() string
	FetchRegions(ctx context.Context) ([]region.Region, error)
}

// MetricSource yields the metric table.
type MetricSource interface {
	Name() string
	FetchMetrics(ctx context.Context) ([]region.MetricRow, error)
}

// isRemote reports whether location is an http(s) URL rather than a path.
func isRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// readLocation returns the bytes at a URL (through client) or a local path.
func readLocation(ctx context.Context, client *Client, location string) ([]byte, error) {
	if isRemote(location) {
		return client.Get(ctx, location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", location)
	}
	return data, nil
}
