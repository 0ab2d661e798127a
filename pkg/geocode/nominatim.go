package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/bova-research/dcatlas/internal/resilience"
)

const nominatimDefaultBaseURL = "https://nominatim.openstreetmap.org"

// nominatimPlace is one entry of the Nominatim search response array.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Class       string `json:"class"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
}

// NominatimProvider geocodes via the OSM Nominatim search API. The usage
// policy requires an identifying User-Agent and at most one request per
// second against the public instance.
type NominatimProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NominatimOption configures the NominatimProvider.
type NominatimOption func(*NominatimProvider)

// WithNominatimBaseURL points the provider at a self-hosted instance.
func WithNominatimBaseURL(u string) NominatimOption {
	return func(p *NominatimProvider) { p.baseURL = u }
}

// WithNominatimHTTPClient sets a custom HTTP client.
func WithNominatimHTTPClient(hc *http.Client) NominatimOption {
	return func(p *NominatimProvider) { p.httpClient = hc }
}

// WithNominatimRateLimit sets the requests-per-second limit.
func WithNominatimRateLimit(rps float64) NominatimOption {
	return func(p *NominatimProvider) {
		p.limiter = rate.NewLimiter(rate.Limit(rps), burstFor(rps))
	}
}

// NewNominatimProvider creates a NominatimProvider with the given User-Agent.
func NewNominatimProvider(userAgent string, opts ...NominatimOption) *NominatimProvider {
	p := &NominatimProvider{
		baseURL:    nominatimDefaultBaseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return p.userAgent != "" }

// Geocode implements Provider.
func (p *NominatimProvider) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	oneLine := formatOneLine(addr)
	if oneLine == "" {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"q":            {oneLine},
		"format":       {"jsonv2"},
		"limit":        {"1"},
		"countrycodes": {"us"},
	}
	reqURL := p.baseURL + "/search?" + params.Encode()

	body, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: nominatim build request")
		}
		req.Header.Set("User-Agent", p.userAgent)
		return fetchBody(p.httpClient, req, "nominatim")
	})
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}

	if len(places) == 0 {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	place := places[0]
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim parse lat %q", place.Lat)
	}
	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim parse lon %q", place.Lon)
	}

	return &Result{
		Latitude:  lat,
		Longitude: lon,
		Source:    "nominatim",
		Quality:   nominatimQuality(place.Class, place.Type),
		Matched:   true,
	}, nil
}

// nominatimQuality maps the OSM object class of the match to our taxonomy.
// Building-level objects are rooftop; roads interpolate along a range;
// administrative areas only give a centroid.
func nominatimQuality(class, osmType string) string {
	switch class {
	case "building", "office", "telecom":
		return QualityRooftop
	case "highway":
		return QualityRange
	case "place", "boundary":
		if osmType == "house" || osmType == "postcode" {
			return QualityRange
		}
		return QualityCentroid
	default:
		return QualityApproximate
	}
}
