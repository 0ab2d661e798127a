// Package osm enriches cleaned records with OpenStreetMap building history:
// it searches Overpass for data-center buildings near each coordinate pair,
// walks element history, and infers the year the facility became operational.
package osm

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Explicit data-center tags.
var dcExplicitTags = [][2]string{
	{"building", "data_center"},
	{"telecom", "data_center"},
}

// Normalized values accepted as "data-center-like" on the keys below.
var dcLikeValues = map[string]bool{
	"datacenter":    true,
	"datacentre":    true,
	"datacentreuk":  true,
	"datacentreca":  true,
	"datacentreau":  true,
}

var dcLikeKeys = []string{"building", "building:use", "telecom", "industrial"}

// normValue lowercases and strips everything but letters and digits, so
// "Data Centre" and "data_center" compare equal.
func normValue(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasExplicitDCTag reports whether the tag set carries an explicit
// data-center classification.
func HasExplicitDCTag(tags map[string]string) bool {
	if len(tags) == 0 {
		return false
	}
	lower := make(map[string]string, len(tags))
	for k, v := range tags {
		lower[strings.ToLower(k)] = strings.ToLower(v)
	}
	for _, kv := range dcExplicitTags {
		if lower[kv[0]] == kv[1] {
			return true
		}
	}
	return false
}

// HasDCLikeTag reports whether any classification key carries a
// data-center-like value after normalization.
func HasDCLikeTag(tags map[string]string) bool {
	if len(tags) == 0 {
		return false
	}
	lower := make(map[string]string, len(tags))
	for k, v := range tags {
		lower[strings.ToLower(k)] = normValue(v)
	}
	for _, k := range dcLikeKeys {
		if dcLikeValues[lower[k]] {
			return true
		}
	}
	return false
}

// Tag keys that matter when deciding whether a history version changed the
// building's classification.
var relevantKeys = map[string]bool{
	"building": true, "building:use": true, "industrial": true, "amenity": true,
	"office": true, "landuse": true, "name": true, "operator": true,
	"brand": true, "telecom": true, "power": true,
	"start_date": true, "opening_date": true, "opened": true, "start_date:edtf": true,
}

var ignoredPrefixes = []string{
	"addr:", "source", "note", "fixme", "wheelchair", "contact:", "phone",
	"email", "website", "wikidata", "wikipedia", "short_name", "alt_name",
}

// filterRelevant keeps only classification-bearing tags.
func filterRelevant(tags map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range tags {
		skip := false
		for _, pref := range ignoredPrefixes {
			if strings.HasPrefix(k, pref) {
				skip = true
				break
			}
		}
		if skip || !relevantKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// Tag keys consulted for an opening date, in precedence order.
var dateTags = []string{"start_date", "opening_date", "opened", "construction_date", "start_date:edtf"}

var startDateFormats = []string{"2006-01-02", "2006-01", "2006", "01/02/2006", "02.01.2006", "02/01/2006"}

// ParseStartDate parses an OSM date tag value. It returns the raw value, the
// standardized YYYY-MM-DD form, and the year; standardized is "" and year is
// 0 when the value is unparseable.
func ParseStartDate(value string) (raw, standardized string, year int) {
	raw = strings.TrimSpace(value)
	if raw == "" {
		return "", "", 0
	}
	for _, format := range startDateFormats {
		if parsed, err := time.Parse(format, raw); err == nil {
			return raw, parsed.Format("2006-01-02"), parsed.Year()
		}
	}
	if len(raw) == 4 {
		if y, err := strconv.Atoi(raw); err == nil && plausibleYear(y) {
			return raw, strconv.Itoa(y) + "-01-01", y
		}
	}
	return raw, "", 0
}

func plausibleYear(y int) bool {
	return y >= 1900 && y <= 2100
}
