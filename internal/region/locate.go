package region

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Locate returns the first record, in catalog order, whose geometry contains
// the point. Points inside a polygon hole are outside that polygon.
func Locate(records []Record, lat, lon float64) (Record, bool) {
	pt := geom.Coord{lon, lat}
	for _, r := range records {
		if Contains(r.Geometry, pt) {
			return r, true
		}
	}
	return Record{}, false
}

// Contains reports whether mp contains the lon/lat coordinate.
func Contains(mp *geom.MultiPolygon, pt geom.Coord) bool {
	if mp == nil || mp.Empty() {
		return false
	}
	if !mp.Bounds().OverlapsPoint(mp.Layout(), pt) {
		return false
	}
	for i := 0; i < mp.NumPolygons(); i++ {
		if polygonContains(mp.Polygon(i), pt) {
			return true
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, pt geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	layout := p.Layout()
	if !xy.IsPointInRing(layout, pt, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(layout, pt, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}
