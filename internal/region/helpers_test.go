package region

import (
	"github.com/twpayne/go-geom"
)

// square returns a closed unit-style square with its lower-left corner at
// (lon, lat).
func square(lon, lat, size float64) *geom.MultiPolygon {
	flat := []float64{
		lon, lat,
		lon + size, lat,
		lon + size, lat + size,
		lon, lat + size,
		lon, lat,
	}
	return geom.NewMultiPolygonFlat(geom.XY, flat, [][]int{{len(flat)}}).SetSRID(SRID)
}
