package source

import (
	"context"
	"math"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/regionmap/internal/region"
)

// City is a named point used to build the fallback catalog.
type City struct {
	Name string
	Lat  float64
	Lon  float64
}

// FallbackCities are major NSW centres, in catalog order.
var FallbackCities = []City{
	{Name: "Sydney", Lat: -33.8688, Lon: 151.2093},
	{Name: "Newcastle", Lat: -32.9283, Lon: 151.7817},
	{Name: "Wollongong", Lat: -34.4248, Lon: 150.8931},
	{Name: "Central Coast", Lat: -33.3208, Lon: 151.3442},
	{Name: "Albury", Lat: -36.0737, Lon: 146.9135},
	{Name: "Wagga Wagga", Lat: -35.1082, Lon: 147.3598},
	{Name: "Coffs Harbour", Lat: -30.2963, Lon: 153.1157},
	{Name: "Port Macquarie", Lat: -31.4333, Lon: 152.9000},
	{Name: "Tamworth", Lat: -31.0927, Lon: 150.9320},
	{Name: "Orange", Lat: -33.2833, Lon: 149.1000},
}

const (
	fallbackRadius   = 0.1 // degrees
	fallbackSegments = 64
)

// FallbackBoundaries is the built-in catalog used when the live boundary
// source is unavailable: one circular region of radius 0.1 degrees around
// each of FallbackCities.
type FallbackBoundaries struct{}

// Name implements BoundarySource.
func (FallbackBoundaries) Name() string { return "fallback" }

// FetchRegions implements BoundarySource. It never fails.
func (FallbackBoundaries) FetchRegions(context.Context) ([]region.Region, error) {
	regions := make([]region.Region, 0, len(FallbackCities))
	for _, c := range FallbackCities {
		regions = append(regions, region.Region{
			Key:      c.Name,
			Geometry: circle(c.Lon, c.Lat, fallbackRadius, fallbackSegments),
		})
	}
	return regions, nil
}

// FallbackKeys returns the fallback region keys in catalog order.
func FallbackKeys() []string {
	keys := make([]string, len(FallbackCities))
	for i, c := range FallbackCities {
		keys[i] = c.Name
	}
	return keys
}

// circle approximates a disc as a closed counter-clockwise ring.
func circle(lon, lat, radius float64, segments int) *geom.MultiPolygon {
	flat := make([]float64, 0, (segments+1)*2)
	for i := range segments {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		flat = append(flat, lon+radius*math.Cos(theta), lat+radius*math.Sin(theta))
	}
	flat = append(flat, flat[0], flat[1])
	return geom.NewMultiPolygonFlat(geom.XY, flat, [][]int{{len(flat)}}).SetSRID(region.SRID)
}
