package pipeline

import (
	"github.com/bova-research/dcatlas/internal/boundary"
	"github.com/bova-research/dcatlas/internal/dataset"
	"github.com/bova-research/dcatlas/internal/model"
)

// filterCONUS keeps records whose country label is the United States and
// whose claimed state is in the contiguous set. Kept records have their State
// field rewritten to the USPS abbreviation. Dropped records carry a reason.
func (p *Pipeline) filterCONUS(records []model.Record, states []string) (kept, dropped []model.Record) {
	var wanted map[string]bool
	if len(states) > 0 {
		wanted = make(map[string]bool, len(states))
		for _, s := range states {
			if usps := boundary.NormalizeState(s); usps != "" {
				wanted[usps] = true
			}
		}
	}

	for i := range records {
		rec := records[i]

		if !dataset.IsUS(rec.Country, p.cfg.Clean.CountryLabels) {
			rec.DropReason = model.DropNonUS
			dropped = append(dropped, rec)
			continue
		}

		if rec.State == "" {
			rec.DropReason = model.DropNoStateLabel
			dropped = append(dropped, rec)
			continue
		}
		usps := boundary.NormalizeState(rec.State)
		if usps == "" {
			// AK, HI, PR, territories, and foreign subdivisions all land here.
			rec.DropReason = model.DropNonCONUS
			dropped = append(dropped, rec)
			continue
		}
		if wanted != nil && !wanted[usps] {
			continue // out of scope for this run, not a data defect
		}

		rec.State = usps
		kept = append(kept, rec)
	}
	return kept, dropped
}
