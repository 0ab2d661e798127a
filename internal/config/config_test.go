package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "datacenters_clean.csv", cfg.Paths.CleanOutput)
	assert.Equal(t, "datacenters_secret.csv", cfg.Paths.SecretOutput)
	assert.Equal(t, "dcatlas.db", cfg.Paths.CheckpointDB)
	assert.Equal(t, "/tmp/dcatlas", cfg.Paths.TempDir)
	assert.Equal(t, 4, cfg.Clean.Concurrency)
	assert.Contains(t, cfg.Clean.CountryLabels, "usa")
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.NominatimBaseURL)
	assert.InDelta(t, 1.0, cfg.Geocode.NominatimRPS, 0.001)
	assert.Equal(t, 30, cfg.Geocode.TimeoutSecs)
	assert.Equal(t, 30, cfg.Geocode.CacheTTLDays)
	assert.Contains(t, cfg.Boundary.ShapefileURL, "tl_2024_us_state.zip")
	assert.Equal(t, "https://overpass-api.de/api/interpreter", cfg.OSM.OverpassURL)
	assert.Equal(t, []int{50, 100, 200}, cfg.OSM.RadiusSteps)
	assert.Equal(t, []string{"yes"}, cfg.OSM.GenericAllow)
	assert.Equal(t, 90, cfg.OSM.TimeoutSecs)
	assert.Equal(t, "dcatlas", cfg.Mirror.Schema)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
paths:
  input: /data/datacentermap.geojson
  checkpoint_db: /data/run.db
clean:
  concurrency: 8
log:
  level: debug
  format: console
osm:
  radius_steps: [100, 500]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/datacentermap.geojson", cfg.Paths.Input)
	assert.Equal(t, "/data/run.db", cfg.Paths.CheckpointDB)
	assert.Equal(t, 8, cfg.Clean.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []int{100, 500}, cfg.OSM.RadiusSteps)
	// Defaults still apply for unset values
	assert.Equal(t, "datacenters_clean.csv", cfg.Paths.CleanOutput)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: warn
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("DCATLAS_LOG_LEVEL", "debug")
	t.Setenv("DCATLAS_GEOCODE_GOOGLE_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "test-key", cfg.Geocode.GoogleKey)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "not-a-level", Format: "json"}))
}
