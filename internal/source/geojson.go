package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regionmap/internal/region"
)

// GeoJSONSource reads boundaries from a GeoJSON FeatureCollection, either a
// WFS/GeoJSON endpoint or a local file.
type GeoJSONSource struct {
	Location string
	KeyField string
	Client   *Client
}

// NewGeoJSONSource creates a GeoJSONSource.
func NewGeoJSONSource(client *Client, location, keyField string) *GeoJSONSource {
	return &GeoJSONSource{Location: location, KeyField: keyField, Client: client}
}

// Name implements BoundarySource.
func (s *GeoJSONSource) Name() string { return "geojson:" + s.Location }

// FetchRegions implements BoundarySource.
func (s *GeoJSONSource) FetchRegions(ctx context.Context) ([]region.Region, error) {
	data, err := readLocation(ctx, s.Client, s.Location)
	if err != nil {
		return nil, err
	}
	regions, err := region.DecodeRegions(data, s.KeyField)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, eris.Errorf("source: %s has no usable features", s.Location)
	}
	return regions, nil
}
