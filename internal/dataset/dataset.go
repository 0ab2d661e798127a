// Package dataset loads the data-center location dataset from CSV, GeoJSON,
// or XLSX and provides the inspection summaries the cleaning workflow relies
// on.
package dataset

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bova-research/dcatlas/internal/model"
)

// Load reads records from path, dispatching on the file extension.
// Duplicate record IDs are a load error: downstream checkpointing and the
// clean/secret split both key on the identifier.
func Load(path string) ([]model.Record, error) {
	var (
		records []model.Record
		err     error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		records, err = loadCSV(path)
	case ".geojson", ".json":
		records, err = loadGeoJSON(path)
	case ".xlsx":
		records, err = loadXLSX(path)
	default:
		return nil, eris.Errorf("dataset: unsupported input format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(records))
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, eris.Wrap(err, "dataset: invalid record")
		}
		if seen[records[i].ID] {
			return nil, eris.Errorf("dataset: duplicate record id %s", records[i].ID)
		}
		seen[records[i].ID] = true
	}

	zap.L().Info("dataset: loaded records",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// Column header aliases recognized in tabular inputs, all compared after
// normalization.
var columnAliases = map[string]string{
	"id":             "id",
	"uid":            "id",
	"facility_id":    "id",
	"name":           "name",
	"facility":       "name",
	"operator":       "operator",
	"company":        "operator",
	"country":        "country",
	"state":          "state",
	"region":         "state",
	"state_province": "state",
	"province":       "state",
	"city":           "city",
	"town":           "city",
	"street":         "street",
	"address":        "street",
	"address1":       "street",
	"zip":            "zip",
	"zipcode":        "zip",
	"zip_code":       "zip",
	"postal_code":    "zip",
	"longitude":      "longitude",
	"lon":            "longitude",
	"lng":            "longitude",
	"x":              "longitude",
	"latitude":       "latitude",
	"lat":            "latitude",
	"y":              "latitude",
}

// mapHeader resolves a header row to canonical column positions.
func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if canonical, ok := columnAliases[key]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	if _, ok := cols["id"]; !ok {
		return nil, eris.New("dataset: no id column in header")
	}
	return cols, nil
}

func cell(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
