package osm

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
)

// Operational-year provenance values.
const (
	YearSourceStartDate  = "start_date"
	YearSourceExplicitDC = "dc_first_seen_explicit"
	YearSourceDCLike     = "dc_first_seen_like"
)

// Analysis is the history-derived record for one building candidate. The csv
// tags define the enrichment output columns.
type Analysis struct {
	BuildingID            string `csv:"building_id"`
	LastChangeTimestamp   string `csv:"last_change_timestamp"`
	LastChangeYear        int    `csv:"last_change_year,omitempty"`
	LastChangeUser        string `csv:"last_change_user"`
	LastChangeChangeset   string `csv:"last_change_changeset"`
	LastChangeVersion     int    `csv:"last_change_version,omitempty"`
	IsDatacenterNow       bool   `csv:"is_datacenter_now"`
	TotalVersions         int    `csv:"total_versions"`
	FirstTimestamp        string `csv:"first_timestamp"`
	StartDateRaw          string `csv:"start_date_raw"`
	StartDateStandardized string `csv:"start_date_standardized"`
	StartDateYear         int    `csv:"start_date_year,omitempty"`
	StartDateSourceTag    string `csv:"start_date_source_tag"`
	CurrentName           string `csv:"current_name"`
	CurrentOperator       string `csv:"current_operator"`
	CurrentBuildingType   string `csv:"current_building_type"`
	IsDatacenterCurrent   bool   `csv:"is_datacenter_current"`
	LastRelevantTimestamp string `csv:"last_change_relevant_timestamp"`
	FirstExplicitDCTime   string `csv:"dc_first_seen_explicit_timestamp"`
	FirstExplicitDCYear   int    `csv:"dc_first_seen_explicit_year,omitempty"`
	FirstDCLikeTime       string `csv:"dc_first_seen_like_timestamp"`
	FirstDCLikeYear       int    `csv:"dc_first_seen_like_year,omitempty"`
	OperationalYear       int    `csv:"operational_year_inferred,omitempty"`
	OperationalYearSource string `csv:"operational_year_source"`
}

// HasDateSignal reports whether any usable date evidence was found: an
// explicit start_date or a data-center classification appearing in history.
func (a *Analysis) HasDateSignal() bool {
	return a.StartDateYear != 0 || a.FirstExplicitDCYear != 0 || a.FirstDCLikeYear != 0
}

// Analyze derives the building's record from its version history and current
// state. Versions may arrive in any order. Returns nil for empty histories.
func Analyze(elemType string, id int64, versions []Version, current *CurrentInfo) *Analysis {
	if len(versions) == 0 {
		return nil
	}
	sorted := make([]Version, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	// Latest version in which a classification-bearing tag changed. This is
	// the deterministic tie-breaker when several candidates sit in the same
	// radius.
	prevRelevant := map[string]string{}
	lastRelevant := sorted[0].Timestamp
	for _, v := range sorted {
		rel := filterRelevant(v.Tags)
		if !maps.Equal(rel, prevRelevant) {
			lastRelevant = v.Timestamp
			prevRelevant = rel
		}
	}

	var firstExplicitTS, firstLikeTS string
	for _, v := range sorted {
		if firstExplicitTS == "" && HasExplicitDCTag(v.Tags) {
			firstExplicitTS = v.Timestamp
		}
		if firstLikeTS == "" && HasDCLikeTag(v.Tags) {
			firstLikeTS = v.Timestamp
		}
		if firstExplicitTS != "" && firstLikeTS != "" {
			break
		}
	}

	last := sorted[len(sorted)-1]
	a := &Analysis{
		BuildingID:            fmt.Sprintf("%s/%d", elemType, id),
		LastChangeTimestamp:   last.Timestamp,
		LastChangeYear:        timestampYear(last.Timestamp),
		LastChangeUser:        last.User,
		LastChangeChangeset:   last.Changeset,
		LastChangeVersion:     last.Version,
		IsDatacenterNow:       HasExplicitDCTag(last.Tags),
		TotalVersions:         len(sorted),
		FirstTimestamp:        sorted[0].Timestamp,
		LastRelevantTimestamp: lastRelevant,
		FirstExplicitDCTime:   firstExplicitTS,
		FirstExplicitDCYear:   timestampYear(firstExplicitTS),
		FirstDCLikeTime:       firstLikeTS,
		FirstDCLikeYear:       timestampYear(firstLikeTS),
	}

	if current != nil {
		a.StartDateRaw = current.StartDateRaw
		a.StartDateStandardized = current.StartDateStandardized
		a.StartDateYear = current.StartDateYear
		a.StartDateSourceTag = current.StartDateSourceTag
		a.CurrentName = current.Tags["name"]
		a.CurrentOperator = current.Tags["operator"]
		a.CurrentBuildingType = current.Tags["building"]
		a.IsDatacenterCurrent = HasExplicitDCTag(current.Tags)
	}

	// Operational year precedence: an explicit opening date beats the first
	// explicit data-center version, which beats the first DC-like version.
	switch {
	case plausibleYear(a.StartDateYear):
		a.OperationalYear = a.StartDateYear
		a.OperationalYearSource = YearSourceStartDate
	case plausibleYear(a.FirstExplicitDCYear):
		a.OperationalYear = a.FirstExplicitDCYear
		a.OperationalYearSource = YearSourceExplicitDC
	case plausibleYear(a.FirstDCLikeYear):
		a.OperationalYear = a.FirstDCLikeYear
		a.OperationalYearSource = YearSourceDCLike
	}
	return a
}

// timestampYear extracts the year from an ISO-8601 OSM timestamp.
func timestampYear(ts string) int {
	if len(ts) < 4 {
		return 0
	}
	y, err := strconv.Atoi(ts[:4])
	if err != nil {
		return 0
	}
	return y
}
