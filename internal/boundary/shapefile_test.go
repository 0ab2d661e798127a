package boundary

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	fips  string
	usps  string
	name  string
	rings [][]shp.Point
}

// square returns a closed counter-clockwise ring.
func square(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
		{X: minX, Y: minY},
	}
}

func writeStateShapefile(t *testing.T, states []testState) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tl_test_us_state.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	fields := []shp.Field{
		shp.StringField("STATEFP", 2),
		shp.StringField("STUSPS", 2),
		shp.StringField("NAME", 100),
	}
	require.NoError(t, w.SetFields(fields))

	for i, st := range states {
		var points []shp.Point
		var parts []int32
		for _, ring := range st.rings {
			parts = append(parts, int32(len(points)))
			points = append(points, ring...)
		}

		box := shp.Box{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
		for _, p := range points {
			if p.X < box.MinX {
				box.MinX = p.X
			}
			if p.X > box.MaxX {
				box.MaxX = p.X
			}
			if p.Y < box.MinY {
				box.MinY = p.Y
			}
			if p.Y > box.MaxY {
				box.MaxY = p.Y
			}
		}

		poly := &shp.Polygon{
			Box:       box,
			NumParts:  int32(len(parts)),
			NumPoints: int32(len(points)),
			Parts:     parts,
			Points:    points,
		}
		w.Write(poly)
		require.NoError(t, w.WriteAttribute(i, 0, st.fips))
		require.NoError(t, w.WriteAttribute(i, 1, st.usps))
		require.NoError(t, w.WriteAttribute(i, 2, st.name))
	}

	w.Close()
	return path
}

func testStates() []testState {
	return []testState{
		{fips: "08", usps: "CO", name: "Colorado", rings: [][]shp.Point{square(-109, 37, -102, 41)}},
		{fips: "56", usps: "WY", name: "Wyoming", rings: [][]shp.Point{square(-111, 41, -104, 45)}},
	}
}

func TestLoadShapefile(t *testing.T) {
	path := writeStateShapefile(t, testStates())

	idx, err := LoadShapefile(path)
	require.NoError(t, err)
	require.Equal(t, 2, idx.Len())

	assert.Equal(t, "CO", idx.States()[0].USPS)
	assert.Equal(t, "08", idx.States()[0].FIPS)
	assert.Equal(t, "Colorado", idx.States()[0].Name)
}

func TestIndex_Lookup(t *testing.T) {
	path := writeStateShapefile(t, testStates())
	idx, err := LoadShapefile(path)
	require.NoError(t, err)

	// Denver-ish point inside the Colorado square.
	assert.Equal(t, "CO", idx.Lookup(-104.99, 39.74))
	// Cheyenne-ish point inside the Wyoming square.
	assert.Equal(t, "WY", idx.Lookup(-104.82, 41.14))
	// Point in the Pacific.
	assert.Equal(t, "", idx.Lookup(-130.0, 40.0))
}

func TestIndex_Lookup_Hole(t *testing.T) {
	// A state ring with a hole cut out of its middle.
	donut := testState{
		fips: "99", usps: "ZZ", name: "Donut",
		rings: [][]shp.Point{
			square(-100, 30, -90, 40),
			square(-96, 34, -94, 36),
		},
	}
	path := writeStateShapefile(t, []testState{donut})
	idx, err := LoadShapefile(path)
	require.NoError(t, err)

	assert.Equal(t, "ZZ", idx.Lookup(-98.0, 31.0))
	// Inside the hole: even-odd rule excludes it.
	assert.Equal(t, "", idx.Lookup(-95.0, 35.0))
}

func TestLoadShapefile_MissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("OTHER", 10)}))
	w.Close()

	_, err = LoadShapefile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATEFP")
}

func TestStatePolygon_EWKB(t *testing.T) {
	path := writeStateShapefile(t, testStates())
	idx, err := LoadShapefile(path)
	require.NoError(t, err)

	data, err := idx.States()[0].EWKB()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// Little-endian EWKB marker.
	assert.Equal(t, byte(0x01), data[0])
}
