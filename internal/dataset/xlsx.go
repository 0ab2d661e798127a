package dataset

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/bova-research/dcatlas/internal/model"
)

// loadXLSX reads the first sheet of a spreadsheet export. Row 0 is the
// header, mapped the same way as CSV input.
func loadXLSX(path string) ([]model.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("dataset: xlsx has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("dataset: xlsx sheet is empty")
	}

	cols, err := mapHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var records []model.Record
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if allBlank(cells) {
			continue
		}
		rec, err := recordFromRow(cells, cols)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: xlsx row %d", i+2)
		}
		records = append(records, rec)
	}

	return records, nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
