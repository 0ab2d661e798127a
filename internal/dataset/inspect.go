package dataset

import (
	"fmt"
	"io"
	"sort"

	"github.com/bova-research/dcatlas/internal/model"
)

// Summary is the productized form of the ad hoc unique()/coverage checks the
// cleaning workflow starts with.
type Summary struct {
	Total         int
	WithCoords    int
	WithoutCoords int
	Countries     map[string]int
	States        map[string]int
}

// Summarize computes label frequencies and coordinate coverage.
func Summarize(records []model.Record) Summary {
	s := Summary{
		Total:     len(records),
		Countries: make(map[string]int),
		States:    make(map[string]int),
	}
	for i := range records {
		r := &records[i]
		if r.HasCoordinates() {
			s.WithCoords++
		} else {
			s.WithoutCoords++
		}
		s.Countries[labelOrBlank(r.Country)]++
		s.States[labelOrBlank(r.State)]++
	}
	return s
}

// Write prints the summary in descending frequency order.
func (s Summary) Write(w io.Writer) {
	fmt.Fprintf(w, "records: %d (with coordinates: %d, without: %d)\n",
		s.Total, s.WithCoords, s.WithoutCoords)

	fmt.Fprintf(w, "\ncountries (%d unique):\n", len(s.Countries))
	writeFreq(w, s.Countries)

	fmt.Fprintf(w, "\nstates (%d unique):\n", len(s.States))
	writeFreq(w, s.States)
}

func writeFreq(w io.Writer, freq map[string]int) {
	type entry struct {
		label string
		count int
	}
	entries := make([]entry, 0, len(freq))
	for label, count := range freq {
		entries = append(entries, entry{label, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].label < entries[j].label
	})
	for _, e := range entries {
		fmt.Fprintf(w, "  %-30s %d\n", e.label, e.count)
	}
}

func labelOrBlank(label string) string {
	if label == "" {
		return "(blank)"
	}
	return label
}
