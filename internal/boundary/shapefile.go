package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Shapefile attribute names in the TIGER/Line state layer.
const (
	fieldStateFP = "STATEFP"
	fieldSTUSPS  = "STUSPS"
	fieldName    = "NAME"
)

// LoadShapefile reads a TIGER/Line state boundary shapefile and builds a
// point-in-state index. Records without polygon geometry are skipped.
func LoadShapefile(shpPath string) (*Index, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToUpper(name)] = i
	}

	fpIdx, ok := fieldIdx[fieldStateFP]
	if !ok {
		return nil, eris.Errorf("boundary: shapefile missing %s field", fieldStateFP)
	}
	uspsIdx, ok := fieldIdx[fieldSTUSPS]
	if !ok {
		return nil, eris.Errorf("boundary: shapefile missing %s field", fieldSTUSPS)
	}
	nameIdx, ok := fieldIdx[fieldName]
	if !ok {
		return nil, eris.Errorf("boundary: shapefile missing %s field", fieldName)
	}

	var states []StatePolygon
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly.NumParts == 0 || len(poly.Points) == 0 {
			skipped++
			continue
		}

		sp := StatePolygon{
			FIPS: attribute(reader, fpIdx),
			USPS: strings.ToUpper(attribute(reader, uspsIdx)),
			Name: attribute(reader, nameIdx),
		}

		bounds := geom.NewBounds(geom.XY)
		for i := int32(0); i < poly.NumParts; i++ {
			start := poly.Parts[i]
			end := int32(len(poly.Points))
			if i+1 < poly.NumParts {
				end = poly.Parts[i+1]
			}

			ring := make([]float64, 0, (end-start)*2)
			for j := start; j < end; j++ {
				ring = append(ring, poly.Points[j].X, poly.Points[j].Y)
			}
			if len(ring) < 8 { // a closed ring needs at least 4 vertices
				continue
			}
			sp.rings = append(sp.rings, ring)
			bounds = bounds.Extend(geom.NewLineStringFlat(geom.XY, ring))
		}

		if len(sp.rings) == 0 || sp.USPS == "" {
			skipped++
			continue
		}
		sp.bounds = bounds
		states = append(states, sp)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records", zap.Int("skipped", skipped))
	}
	if len(states) == 0 {
		return nil, eris.Errorf("boundary: no state polygons in %s", shpPath)
	}

	zap.L().Info("boundary: loaded state polygons",
		zap.String("path", shpPath),
		zap.Int("states", len(states)),
	)
	return &Index{states: states}, nil
}

func attribute(r *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
}
