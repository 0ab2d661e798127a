package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleBody(locType string) string {
	return fmt.Sprintf(`{
	  "status": "OK",
	  "results": [
	    {
	      "geometry": {
	        "location": {"lat": 32.7876, "lng": -96.797},
	        "location_type": %q
	      },
	      "formatted_address": "2323 Bryan St, Dallas, TX 75201, USA"
	    }
	  ]
	}`, locType)
}

func TestGoogleProvider_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(googleBody("ROOFTOP")))
	}))
	defer srv.Close()

	p := NewGoogleProvider("secret-key", WithGoogleBaseURL(srv.URL))
	result, err := p.Geocode(context.Background(), AddressInput{Street: "2323 Bryan St", City: "Dallas", State: "TX"})

	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "google", result.Source)
	assert.Equal(t, QualityRooftop, result.Quality)
	assert.InDelta(t, 32.7876, result.Latitude, 0.0001)
}

func TestGoogleProvider_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider("secret-key", WithGoogleBaseURL(srv.URL))
	result, err := p.Geocode(context.Background(), AddressInput{Street: "nowhere"})

	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "google", result.Source)
}

func TestGoogleProvider_NoKey(t *testing.T) {
	p := NewGoogleProvider("")
	assert.False(t, p.Available())

	_, err := p.Geocode(context.Background(), AddressInput{Street: "x"})
	require.Error(t, err)
}

func TestGoogleLocationTypeToQuality(t *testing.T) {
	tests := []struct {
		locType string
		want    string
	}{
		{"ROOFTOP", QualityRooftop},
		{"RANGE_INTERPOLATED", QualityRange},
		{"GEOMETRIC_CENTER", QualityCentroid},
		{"APPROXIMATE", QualityApproximate},
		{"rooftop", QualityRooftop},
		{"UNKNOWN_TYPE", QualityApproximate},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, googleLocationTypeToQuality(tt.locType), tt.locType)
	}
}
