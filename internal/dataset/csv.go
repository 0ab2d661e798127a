package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/bova-research/dcatlas/internal/model"
)

// loadCSV streams a CSV export into records. The first row is the header.
func loadCSV(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // exports are ragged around optional columns
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read csv header")
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var records []model.Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read csv line %d", line+1)
		}
		line++

		rec, err := recordFromRow(row, cols)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: csv line %d", line)
		}
		records = append(records, rec)
	}

	return records, nil
}

// recordFromRow builds a Record from a tabular row using the resolved
// column map. Blank coordinate cells mean absent coordinates, not zero.
func recordFromRow(row []string, cols map[string]int) (model.Record, error) {
	rec := model.Record{
		ID:       cell(row, cols, "id"),
		Name:     cell(row, cols, "name"),
		Operator: cell(row, cols, "operator"),
		Country:  cell(row, cols, "country"),
		State:    cell(row, cols, "state"),
		City:     cell(row, cols, "city"),
		Street:   cell(row, cols, "street"),
		ZipCode:  cell(row, cols, "zip"),
	}

	lonStr := cell(row, cols, "longitude")
	latStr := cell(row, cols, "latitude")
	if lonStr != "" || latStr != "" {
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return rec, eris.Wrapf(err, "parse longitude %q", lonStr)
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return rec, eris.Wrapf(err, "parse latitude %q", latStr)
		}
		rec.Longitude = &lon
		rec.Latitude = &lat
	}

	return rec, nil
}
