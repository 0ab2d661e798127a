// Package model defines the data-center record entities shared across the
// cleaning pipeline.
package model

import "fmt"

// Coordinate source values for Record.CoordSource.
const (
	SourceOriginal  = "source"
	SourceCensus    = "census"
	SourceGoogle    = "google"
	SourceNominatim = "nominatim"
)

// Coordinate quality taxonomy, best to worst.
const (
	QualityRooftop     = "rooftop"
	QualityRange       = "range"
	QualityCentroid    = "centroid"
	QualityApproximate = "approximate"
)

// Drop reasons recorded when a record is excluded from both outputs.
const (
	DropNonUS          = "non_us"
	DropNonCONUS       = "non_conus"
	DropNoStateLabel   = "no_state_label"
	DropUnresolved     = "unresolved_mismatch"
	DropGeocodeMiss    = "geocode_no_match"
	DropDuplicateID    = "duplicate_id"
	DropBadCoordinates = "bad_coordinates"
)

// Record is a single data-center entry from the input dataset.
// Longitude/Latitude are pointers because absence of coordinates is
// meaningful: those records form the "secret" dataset.
type Record struct {
	ID       string
	Name     string
	Operator string
	Country  string
	State    string // claimed state, normalized to a USPS abbreviation
	City     string
	Street   string
	ZipCode  string

	Longitude *float64
	Latitude  *float64

	// Derived during cleaning.
	BestLongitude float64
	BestLatitude  float64
	CoordSource   string
	CoordQuality  string
	JoinedState   string // state polygon containing the source point, "" if none
	StateMatch    bool   // joined state equals the claimed state
	DropReason    string
}

// HasCoordinates reports whether the source dataset supplied a coordinate
// pair for this record.
func (r *Record) HasCoordinates() bool {
	return r.Longitude != nil && r.Latitude != nil
}

// SetBest records the resolved coordinate pair and its provenance.
func (r *Record) SetBest(lon, lat float64, source, quality string) {
	r.BestLongitude = lon
	r.BestLatitude = lat
	r.CoordSource = source
	r.CoordQuality = quality
}

// Validate checks structural requirements at load time.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record %q: missing id", r.Name)
	}
	if (r.Longitude == nil) != (r.Latitude == nil) {
		return fmt.Errorf("record %s: partial coordinate pair", r.ID)
	}
	if r.HasCoordinates() {
		if *r.Longitude < -180 || *r.Longitude > 180 || *r.Latitude < -90 || *r.Latitude > 90 {
			return fmt.Errorf("record %s: coordinates out of range (%f, %f)", r.ID, *r.Longitude, *r.Latitude)
		}
	}
	return nil
}

// StateBoundary is one state polygon from the reference boundary layer.
type StateBoundary struct {
	FIPS string
	USPS string
	Name string
}
