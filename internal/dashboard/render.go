package dashboard

import (
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/regionmap/internal/region"
)

// Map feature style shared by every region.
const (
	strokeColor = "black"
	strokeWidth = 1
	fillOpacity = 0.7
)

// MapFeatures pairs each classified region with its geometry as GeoJSON
// features for the map renderer. Regions without geometry are left out.
func MapFeatures(records []region.Record, c Classification) *geojson.FeatureCollection {
	geoms := make(map[string]region.Record, len(records))
	for _, r := range records {
		geoms[r.Key] = r
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(c.Regions))}
	for _, cr := range c.Regions {
		r, ok := geoms[cr.Key]
		if !ok || r.Geometry == nil {
			continue
		}
		props := map[string]any{
			"key":         cr.Key,
			"bucket":      cr.Bucket,
			"fillColor":   cr.Color,
			"color":       strokeColor,
			"weight":      strokeWidth,
			"fillOpacity": fillOpacity,
			"layer":       c.Label,
		}
		if cr.Value != nil {
			props[c.Metric] = *cr.Value
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         cr.Key,
			Geometry:   r.Geometry,
			Properties: props,
		})
	}
	return fc
}
