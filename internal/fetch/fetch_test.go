package fetch

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bova-research/dcatlas/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDownload_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dcatlas-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("shapefile bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "states.zip")
	d := NewDownloader(Options{UserAgent: "dcatlas-test", Retry: fastRetry()})

	require.NoError(t, d.Download(context.Background(), srv.URL, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "shapefile bytes", string(data))
}

func TestDownload_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	d := NewDownloader(Options{Retry: fastRetry()})

	require.NoError(t, d.Download(context.Background(), srv.URL, dest))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownload_PermanentStatusFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDownloader(Options{Retry: fastRetry()})
	err := d.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "out.bin"))

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDownload_UnsupportedScheme(t *testing.T) {
	d := NewDownloader(Options{})
	err := d.Download(context.Background(), "gopher://example.com/x", filepath.Join(t.TempDir(), "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func writeTestZIP(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractZIP(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{
		"tl_2024_us_state.shp": "shp data",
		"tl_2024_us_state.dbf": "dbf data",
	})

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	require.Len(t, extracted, 2)

	shpPath, err := FindByExt(extracted, ".shp")
	require.NoError(t, err)
	data, err := os.ReadFile(shpPath)
	require.NoError(t, err)
	assert.Equal(t, "shp data", string(data))

	_, err = FindByExt(extracted, ".prj")
	require.Error(t, err)
}

func TestExtractZIP_ZipSlip(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{
		"../evil.txt": "nope",
	})

	_, err := ExtractZIP(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal path")
}
