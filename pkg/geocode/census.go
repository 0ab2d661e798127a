package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/bova-research/dcatlas/internal/resilience"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

// censusResponse is the JSON response from the Census single-address API.
type censusResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	Coordinates struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	MatchedAddress string `json:"matchedAddress"`
}

// CensusProvider geocodes via the Census Bureau one-line address API.
// It needs no API key and is the cascade's primary provider.
type CensusProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// CensusOption configures the CensusProvider.
type CensusOption func(*CensusProvider)

// WithCensusBaseURL overrides the API endpoint (tests).
func WithCensusBaseURL(u string) CensusOption {
	return func(p *CensusProvider) { p.baseURL = u }
}

// WithCensusHTTPClient sets a custom HTTP client.
func WithCensusHTTPClient(hc *http.Client) CensusOption {
	return func(p *CensusProvider) { p.httpClient = hc }
}

// WithCensusRateLimit sets the requests-per-second limit.
func WithCensusRateLimit(rps float64) CensusOption {
	return func(p *CensusProvider) {
		p.limiter = rate.NewLimiter(rate.Limit(rps), burstFor(rps))
	}
}

// WithCensusRetry overrides the retry policy.
func WithCensusRetry(cfg resilience.RetryConfig) CensusOption {
	return func(p *CensusProvider) { p.retry = cfg }
}

// NewCensusProvider creates a CensusProvider.
func NewCensusProvider(opts ...CensusOption) *CensusProvider {
	p := &CensusProvider{
		baseURL:    censusOneLineURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *CensusProvider) Name() string { return "census" }

// Available implements Provider.
func (p *CensusProvider) Available() bool { return true }

// Geocode implements Provider.
func (p *CensusProvider) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	oneLine := formatOneLine(addr)
	if oneLine == "" {
		return &Result{Matched: false, Source: "census"}, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: census rate limit")
	}

	params := url.Values{
		"address":   {oneLine},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	reqURL := p.baseURL + "?" + params.Encode()

	body, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: census build request")
		}
		return fetchBody(p.httpClient, req, "census")
	})
	if err != nil {
		return nil, err
	}

	var resp censusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "geocode: census parse response")
	}

	if len(resp.Result.AddressMatches) == 0 {
		return &Result{Matched: false, Source: "census"}, nil
	}

	match := resp.Result.AddressMatches[0]
	return &Result{
		Latitude:  match.Coordinates.Y,
		Longitude: match.Coordinates.X,
		Source:    "census",
		Quality:   QualityRooftop, // Census one-line matches are exact
		Matched:   true,
	}, nil
}

func burstFor(rps float64) int {
	if rps < 1 {
		return 1
	}
	return int(rps)
}
