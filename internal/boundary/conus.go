// Package boundary loads the U.S. state boundary layer and answers
// point-in-state membership queries for the cleaning pipeline.
package boundary

import "strings"

// conusByUSPS holds the 48 contiguous states plus DC. Alaska, Hawaii,
// Puerto Rico, and the island territories are excluded.
var conusByUSPS = map[string]string{
	"AL": "Alabama", "AZ": "Arizona", "AR": "Arkansas", "CA": "California",
	"CO": "Colorado", "CT": "Connecticut", "DE": "Delaware", "DC": "District of Columbia",
	"FL": "Florida", "GA": "Georgia", "ID": "Idaho", "IL": "Illinois",
	"IN": "Indiana", "IA": "Iowa", "KS": "Kansas", "KY": "Kentucky",
	"LA": "Louisiana", "ME": "Maine", "MD": "Maryland", "MA": "Massachusetts",
	"MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi", "MO": "Missouri",
	"MT": "Montana", "NE": "Nebraska", "NV": "Nevada", "NH": "New Hampshire",
	"NJ": "New Jersey", "NM": "New Mexico", "NY": "New York", "NC": "North Carolina",
	"ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma", "OR": "Oregon",
	"PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina", "SD": "South Dakota",
	"TN": "Tennessee", "TX": "Texas", "UT": "Utah", "VT": "Vermont",
	"VA": "Virginia", "WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin",
	"WY": "Wyoming",
}

var uspsByName map[string]string

func init() {
	uspsByName = make(map[string]string, len(conusByUSPS))
	for usps, name := range conusByUSPS {
		uspsByName[strings.ToLower(name)] = usps
	}
}

// IsCONUS reports whether the USPS state abbreviation belongs to the
// contiguous United States (DC included).
func IsCONUS(usps string) bool {
	_, ok := conusByUSPS[strings.ToUpper(strings.TrimSpace(usps))]
	return ok
}

// NormalizeState maps a state label (USPS abbreviation or full name, any
// case) to its USPS abbreviation. Returns "" when the label is not a CONUS
// state.
func NormalizeState(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}

	upper := strings.ToUpper(label)
	if _, ok := conusByUSPS[upper]; ok {
		return upper
	}

	if usps, ok := uspsByName[strings.ToLower(label)]; ok {
		return usps
	}
	return ""
}

// StateName returns the full name for a CONUS USPS abbreviation.
func StateName(usps string) string {
	return conusByUSPS[strings.ToUpper(strings.TrimSpace(usps))]
}
