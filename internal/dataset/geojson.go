package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/bova-research/dcatlas/internal/model"
)

// rawFeature keeps geometry as raw JSON so that features with null geometry
// survive decoding; those become coordinate-less records (the "secret"
// candidates).
type rawFeature struct {
	ID         string                 `json:"id"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type rawFeatureCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

// loadGeoJSON reads a FeatureCollection of point features. Feature geometry
// supplies the coordinates; properties supply the labels.
func loadGeoJSON(path string) ([]model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read geojson %s", path)
	}

	var fc rawFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "dataset: parse geojson")
	}
	if fc.Type != "FeatureCollection" {
		return nil, eris.Errorf("dataset: expected FeatureCollection, got %q", fc.Type)
	}

	records := make([]model.Record, 0, len(fc.Features))
	for i, feat := range fc.Features {
		rec := model.Record{
			ID:       feat.ID,
			Name:     propString(feat.Properties, "name"),
			Operator: propString(feat.Properties, "operator", "company"),
			Country:  propString(feat.Properties, "country"),
			State:    propString(feat.Properties, "state", "region"),
			City:     propString(feat.Properties, "city", "town"),
			Street:   propString(feat.Properties, "street", "address"),
			ZipCode:  propString(feat.Properties, "zip", "zipcode", "postal_code"),
		}
		if rec.ID == "" {
			rec.ID = propString(feat.Properties, "id", "uid")
		}
		if rec.ID == "" {
			return nil, eris.Errorf("dataset: geojson feature %d has no id", i)
		}

		if len(feat.Geometry) > 0 && !bytes.Equal(feat.Geometry, []byte("null")) {
			var g geom.T
			if err := geojson.Unmarshal(feat.Geometry, &g); err != nil {
				return nil, eris.Wrapf(err, "dataset: geojson feature %s geometry", rec.ID)
			}
			if pt, ok := g.(*geom.Point); ok {
				lon, lat := pt.X(), pt.Y()
				rec.Longitude = &lon
				rec.Latitude = &lat
			}
		}

		records = append(records, rec)
	}

	return records, nil
}

// propString returns the first non-empty property among keys, stringified.
func propString(props map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%v", s)
		}
	}
	return ""
}
