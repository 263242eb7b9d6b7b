package region

import (
	"slices"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// minRingPoints is the smallest closed ring: a triangle plus the closing
// point.
const minRingPoints = 4

// Simplify returns copies of regions with every ring reduced by
// Douglas-Peucker at tolerance (degrees). A ring that would drop below four
// points is kept as it was. tolerance <= 0 returns regions unchanged.
func Simplify(regions []Region, tolerance float64) []Region {
	if tolerance <= 0 {
		return regions
	}
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = Region{Key: r.Key, Geometry: SimplifyMultiPolygon(r.Geometry, tolerance)}
	}
	return out
}

// SimplifyMultiPolygon simplifies each ring of mp independently. Nil and
// empty geometries are returned as is.
func SimplifyMultiPolygon(mp *geom.MultiPolygon, tolerance float64) *geom.MultiPolygon {
	if mp == nil || mp.Empty() || tolerance <= 0 {
		return mp
	}
	stride := mp.Stride()

	var (
		flat  []float64
		endss [][]int
	)
	for i := range mp.NumPolygons() {
		p := mp.Polygon(i)
		var ends []int
		for j := range p.NumLinearRings() {
			flat = append(flat, simplifyRing(p.LinearRing(j).FlatCoords(), stride, tolerance)...)
			ends = append(ends, len(flat))
		}
		endss = append(endss, ends)
	}
	return geom.NewMultiPolygonFlat(mp.Layout(), flat, endss).SetSRID(mp.SRID())
}

// simplifyRing splits the closed ring in two open halves so neither half
// starts and ends on the same point, simplifies both and joins them again.
func simplifyRing(ring []float64, stride int, tolerance float64) []float64 {
	n := len(ring) / stride
	if n <= minRingPoints {
		return ring
	}
	mid := n / 2

	out := keptPoints(nil, ring[:(mid+1)*stride], stride, tolerance)
	// The second half starts at mid, which the first half already holds.
	second := keptPoints(nil, ring[mid*stride:], stride, tolerance)
	out = append(out, second[stride:]...)

	if len(out)/stride < minRingPoints {
		return ring
	}
	return out
}

func keptPoints(dst, part []float64, stride int, tolerance float64) []float64 {
	idx := xy.SimplifyFlatCoords(part, tolerance, stride)
	slices.Sort(idx)
	for _, i := range idx {
		dst = append(dst, part[i*stride:(i+1)*stride]...)
	}
	return dst
}
