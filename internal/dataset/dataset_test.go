package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleCSV = `id,name,operator,country,state,city,street,zip,longitude,latitude
dc-001,Ashburn VA3,Equinix,USA,VA,Ashburn,21715 Filigree Ct,20147,-77.4605,39.0187
dc-002,Dallas DFW1,Digital Realty,United States,TX,Dallas,2323 Bryan St,75201,-96.7970,32.7876
dc-003,Elk Grove CH1,CyrusOne,US,IL,Elk Grove Village,,,,
`

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, "dcs.csv", sampleCSV)

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "dc-001", records[0].ID)
	assert.Equal(t, "Equinix", records[0].Operator)
	assert.Equal(t, "VA", records[0].State)
	require.True(t, records[0].HasCoordinates())
	assert.InDelta(t, -77.4605, *records[0].Longitude, 0.0001)
	assert.InDelta(t, 39.0187, *records[0].Latitude, 0.0001)

	// Blank coordinate cells mean absent, not zero.
	assert.False(t, records[2].HasCoordinates())
}

func TestLoad_CSV_HeaderAliases(t *testing.T) {
	path := writeFile(t, "dcs.csv",
		"uid,facility,company,country,region,town,address,postal_code,lng,lat\n"+
			"x1,Reston R1,Example,USA,Virginia,Reston,123 Sunrise Valley Dr,20191,-77.35,38.95\n")

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "x1", records[0].ID)
	assert.Equal(t, "Example", records[0].Operator)
	assert.Equal(t, "Virginia", records[0].State)
	assert.Equal(t, "123 Sunrise Valley Dr", records[0].Street)
	assert.True(t, records[0].HasCoordinates())
}

func TestLoad_CSV_DuplicateID(t *testing.T) {
	path := writeFile(t, "dup.csv",
		"id,name\ndc-1,A\ndc-1,B\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate record id")
}

func TestLoad_CSV_BadCoordinate(t *testing.T) {
	path := writeFile(t, "bad.csv",
		"id,longitude,latitude\ndc-1,not-a-number,38.9\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_CSV_MissingIDColumn(t *testing.T) {
	path := writeFile(t, "noid.csv", "name,city\nA,Ashburn\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id column")
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := writeFile(t, "dcs.parquet", "")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input format")
}

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "dc-100",
      "geometry": {"type": "Point", "coordinates": [-77.4605, 39.0187]},
      "properties": {"name": "Ashburn VA3", "operator": "Equinix", "country": "USA", "state": "VA", "city": "Ashburn"}
    },
    {
      "type": "Feature",
      "geometry": null,
      "properties": {"id": "dc-101", "name": "Hidden Site", "country": "USA", "state": "TX", "city": "Austin", "street": "600 Congress Ave"}
    }
  ]
}`

func TestLoad_GeoJSON(t *testing.T) {
	path := writeFile(t, "dcs.geojson", sampleGeoJSON)

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "dc-100", records[0].ID)
	require.True(t, records[0].HasCoordinates())
	assert.InDelta(t, -77.4605, *records[0].Longitude, 0.0001)

	// ID falls back to properties; null geometry means no coordinates.
	assert.Equal(t, "dc-101", records[1].ID)
	assert.False(t, records[1].HasCoordinates())
	assert.Equal(t, "600 Congress Ave", records[1].Street)
}

func TestLoad_GeoJSON_MissingID(t *testing.T) {
	path := writeFile(t, "noid.geojson", `{
	  "type": "FeatureCollection",
	  "features": [{"type": "Feature", "geometry": null, "properties": {"name": "anon"}}]
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id")
}
