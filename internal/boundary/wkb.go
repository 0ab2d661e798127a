package boundary

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
)

// EWKB returns the state geometry as an SRID-4326 EWKB MultiPolygon for the
// Postgres mirror. Each ring becomes a single-ring polygon; the even-odd
// containment rule used by Lookup makes ring grouping unnecessary here too,
// since PostGIS receives the same ring set.
func (s *StatePolygon) EWKB() ([]byte, error) {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i, ring := range s.rings {
		lr := geom.NewLinearRingFlat(geom.XY, ring)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(lr); err != nil {
			zap.L().Debug("boundary: skipping malformed ring",
				zap.String("state", s.USPS),
				zap.Int("ring", i),
				zap.Error(err),
			)
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon",
				zap.String("state", s.USPS),
				zap.Int("ring", i),
				zap.Error(err),
			)
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil, eris.Errorf("boundary: no encodable rings for state %s", s.USPS)
	}

	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: encode EWKB for state %s", s.USPS)
	}
	return data, nil
}
