package region

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// DefaultKeyField is the feature property holding the region key when the
// caller does not name one.
const DefaultKeyField = "name"

// DecodeRegions parses a GeoJSON FeatureCollection into regions. The key is
// read from the keyField property, falling back to the feature id. Features
// without a key or without polygonal geometry are skipped.
func DecodeRegions(data []byte, keyField string) ([]Region, error) {
	if keyField == "" {
		keyField = DefaultKeyField
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "region: decode feature collection")
	}

	regions := make([]Region, 0, len(fc.Features))
	var skipped int
	for _, f := range fc.Features {
		key := featureKey(f, keyField)
		if key == "" {
			skipped++
			continue
		}
		mp, err := ToMultiPolygon(f.Geometry)
		if err != nil {
			skipped++
			continue
		}
		regions = append(regions, Region{Key: key, Geometry: mp})
	}

	if skipped > 0 {
		zap.L().Debug("region: skipped features",
			zap.String("key_field", keyField),
			zap.Int("skipped", skipped),
		)
	}
	return regions, nil
}

// EncodeRegions writes regions as a GeoJSON FeatureCollection with the key
// stored in the keyField property and as the feature id.
func EncodeRegions(regions []Region, keyField string) ([]byte, error) {
	if keyField == "" {
		keyField = DefaultKeyField
	}

	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(regions))}
	for _, r := range regions {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         r.Key,
			Geometry:   r.Geometry,
			Properties: map[string]any{keyField: r.Key},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "region: encode feature collection")
	}
	return data, nil
}

// ToMultiPolygon normalises a polygonal geometry to a MultiPolygon.
func ToMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return nil, eris.New("region: empty multipolygon")
		}
		return t.SetSRID(SRID), nil
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil, eris.New("region: empty polygon")
		}
		return geom.NewMultiPolygonFlat(t.Layout(), t.FlatCoords(), [][]int{t.Ends()}).SetSRID(SRID), nil
	case nil:
		return nil, eris.New("region: missing geometry")
	default:
		return nil, eris.Errorf("region: unsupported geometry %T", g)
	}
}

func featureKey(f *geojson.Feature, keyField string) string {
	if v, ok := f.Properties[keyField]; ok {
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return strings.TrimSpace(f.ID)
}
