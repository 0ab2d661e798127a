package boundary

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// StatePolygon is one state's boundary geometry: all rings of its shapefile
// record plus a bounding box for cheap rejection.
type StatePolygon struct {
	FIPS   string
	USPS   string
	Name   string
	rings  [][]float64 // flat XY coordinate pairs per ring
	bounds *geom.Bounds
}

// Index answers point-in-state queries against the loaded boundary layer.
type Index struct {
	states []StatePolygon
}

// States returns the loaded state polygons in shapefile order.
func (idx *Index) States() []StatePolygon {
	return idx.states
}

// Len returns the number of loaded state polygons.
func (idx *Index) Len() int { return len(idx.states) }

// Lookup returns the USPS abbreviation of the state polygon containing the
// point, or "" when the point falls outside every loaded state.
func (idx *Index) Lookup(lon, lat float64) string {
	p := geom.Coord{lon, lat}
	for i := range idx.states {
		s := &idx.states[i]
		if !s.bounds.OverlapsPoint(geom.XY, p) {
			continue
		}
		if s.contains(p) {
			return s.USPS
		}
	}
	return ""
}

// contains applies the even-odd rule over all rings, so holes are handled
// without classifying ring orientation.
func (s *StatePolygon) contains(p geom.Coord) bool {
	inside := false
	for _, ring := range s.rings {
		if xy.IsPointInRing(geom.XY, p, ring) {
			inside = !inside
		}
	}
	return inside
}
