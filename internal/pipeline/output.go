package pipeline

import (
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/bova-research/dcatlas/internal/model"
)

// outputRow is the CSV shape shared by the clean and secret outputs.
type outputRow struct {
	ID            string  `csv:"id"`
	Name          string  `csv:"name"`
	Operator      string  `csv:"operator"`
	Street        string  `csv:"street"`
	City          string  `csv:"city"`
	State         string  `csv:"state"`
	ZipCode       string  `csv:"zip_code"`
	BestLongitude float64 `csv:"best_longitude"`
	BestLatitude  float64 `csv:"best_latitude"`
	CoordSource   string  `csv:"coord_source"`
	CoordQuality  string  `csv:"coord_quality"`
	JoinedState   string  `csv:"joined_state"`
}

// WriteRecords writes resolved records as CSV. An empty record set still
// produces a file with the header row so downstream notebooks never see a
// missing file.
func WriteRecords(path string, records []model.Record) error {
	rows := make([]outputRow, len(records))
	for i := range records {
		r := &records[i]
		rows[i] = outputRow{
			ID:            r.ID,
			Name:          r.Name,
			Operator:      r.Operator,
			Street:        r.Street,
			City:          r.City,
			State:         r.State,
			ZipCode:       r.ZipCode,
			BestLongitude: r.BestLongitude,
			BestLatitude:  r.BestLatitude,
			CoordSource:   r.CoordSource,
			CoordQuality:  r.CoordQuality,
			JoinedState:   r.JoinedState,
		}
	}

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "output: marshal csv")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "output: write %s", path)
	}
	return nil
}

// ReadRecords reads a previously written clean or secret CSV back into
// records, for mirroring without rerunning the pipeline.
func ReadRecords(path string) ([]model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "output: read %s", path)
	}

	var rows []outputRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrapf(err, "output: parse %s", path)
	}

	records := make([]model.Record, len(rows))
	for i := range rows {
		row := &rows[i]
		records[i] = model.Record{
			ID:            row.ID,
			Name:          row.Name,
			Operator:      row.Operator,
			Street:        row.Street,
			City:          row.City,
			State:         row.State,
			ZipCode:       row.ZipCode,
			BestLongitude: row.BestLongitude,
			BestLatitude:  row.BestLatitude,
			CoordSource:   row.CoordSource,
			CoordQuality:  row.CoordQuality,
			JoinedState:   row.JoinedState,
		}
	}
	return records, nil
}
