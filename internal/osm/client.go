package osm

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/bova-research/dcatlas/internal/config"
	"github.com/bova-research/dcatlas/internal/resilience"
)

// Element is one building candidate returned by Overpass.
type Element struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []Element `json:"elements"`
}

// Version is one entry of an element's edit history.
type Version struct {
	Version   int
	Timestamp string
	User      string
	Changeset string
	Tags      map[string]string
}

// CurrentInfo is the present-day state of an element.
type CurrentInfo struct {
	Tags                  map[string]string
	StartDateRaw          string
	StartDateStandardized string
	StartDateYear         int
	StartDateSourceTag    string
}

// Client talks to the Overpass interpreter and the OSM API, each behind its
// own politeness limiter.
type Client struct {
	overpassURL     string
	apiBase         string
	userAgent       string
	hc              *http.Client
	overpassLimiter *rate.Limiter
	historyLimiter  *rate.Limiter
	retry           resilience.RetryConfig
}

// NewClient builds a Client from configuration.
func NewClient(cfg config.OSMConfig, userAgent string) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	overpassRPS := cfg.OverpassRPS
	if overpassRPS <= 0 {
		overpassRPS = 2
	}
	historyRPS := cfg.HistoryRPS
	if historyRPS <= 0 {
		historyRPS = 1
	}
	return &Client{
		overpassURL:     cfg.OverpassURL,
		apiBase:         cfg.APIBase,
		userAgent:       userAgent,
		hc:              &http.Client{Timeout: timeout},
		overpassLimiter: rate.NewLimiter(rate.Limit(overpassRPS), 1),
		historyLimiter:  rate.NewLimiter(rate.Limit(historyRPS), 1),
		retry:           resilience.OSMRetryConfig(),
	}
}

// FindBuildings queries Overpass for way and relation buildings within the
// given radius (meters) of the coordinate.
func (c *Client) FindBuildings(ctx context.Context, lat, lon float64, radius int) ([]Element, error) {
	query := fmt.Sprintf(`[out:json][timeout:25];
(
  way["building"](around:%d,%f,%f);
  relation["building"](around:%d,%f,%f);
);
out meta;`, radius, lat, lon, radius, lat, lon)

	body, err := c.postOverpass(ctx, query)
	if err != nil {
		return nil, err
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "osm: decode overpass response")
	}
	return resp.Elements, nil
}

// Current fetches the present-day tags of an element, including any opening
// date signal.
func (c *Client) Current(ctx context.Context, elemType string, id int64) (*CurrentInfo, error) {
	query := fmt.Sprintf("[out:json][timeout:25];\n%s(%d);\nout meta;", elemType, id)

	body, err := c.postOverpass(ctx, query)
	if err != nil {
		return nil, err
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "osm: decode overpass response")
	}
	if len(resp.Elements) == 0 {
		return &CurrentInfo{Tags: map[string]string{}}, nil
	}

	info := &CurrentInfo{Tags: resp.Elements[0].Tags}
	if info.Tags == nil {
		info.Tags = map[string]string{}
	}
	for _, tag := range dateTags {
		if v, ok := info.Tags[tag]; ok && v != "" {
			info.StartDateRaw, info.StartDateStandardized, info.StartDateYear = ParseStartDate(v)
			info.StartDateSourceTag = tag
			break
		}
	}
	return info, nil
}

func (c *Client) postOverpass(ctx context.Context, query string) ([]byte, error) {
	if err := c.overpassLimiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "osm: overpass rate limit")
	}
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.overpassURL, bytes.NewBufferString(query))
		if err != nil {
			return nil, eris.Wrap(err, "osm: build overpass request")
		}
		req.Header.Set("User-Agent", c.userAgent)
		return fetchBody(c.hc, req, "overpass")
	})
}

// fetchBody performs the request and reads the full response, wrapping
// retryable statuses as transient so the resilience layer retries them.
func fetchBody(hc *http.Client, req *http.Request, service string) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "osm: %s request", service)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("osm: %s returned status %d", service, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "osm: %s read body", service)
	}
	return body, nil
}

// XML shape of /api/0.6/{type}/{id}/history responses.
type historyDocument struct {
	XMLName   xml.Name     `xml:"osm"`
	Nodes     []historyElm `xml:"node"`
	Ways      []historyElm `xml:"way"`
	Relations []historyElm `xml:"relation"`
}

type historyElm struct {
	Version   int          `xml:"version,attr"`
	Timestamp string       `xml:"timestamp,attr"`
	User      string       `xml:"user,attr"`
	Changeset string       `xml:"changeset,attr"`
	Tags      []historyTag `xml:"tag"`
}

type historyTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

// History fetches the full version history of an element from the OSM API.
func (c *Client) History(ctx context.Context, elemType string, id int64) ([]Version, error) {
	if err := c.historyLimiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "osm: history rate limit")
	}

	url := fmt.Sprintf("%s/%s/%d/history", c.apiBase, elemType, id)
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return nil, eris.Wrap(reqErr, "osm: build history request")
		}
		req.Header.Set("User-Agent", c.userAgent)
		return fetchBody(c.hc, req, "osm-api")
	})
	if err != nil {
		return nil, err
	}

	var doc historyDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, eris.Wrapf(err, "osm: decode history for %s/%d", elemType, id)
	}

	var elems []historyElm
	switch elemType {
	case "node":
		elems = doc.Nodes
	case "way":
		elems = doc.Ways
	case "relation":
		elems = doc.Relations
	}

	versions := make([]Version, len(elems))
	for i, e := range elems {
		tags := make(map[string]string, len(e.Tags))
		for _, t := range e.Tags {
			tags[t.K] = t.V
		}
		versions[i] = Version{
			Version:   e.Version,
			Timestamp: e.Timestamp,
			User:      e.User,
			Changeset: e.Changeset,
			Tags:      tags,
		}
	}
	return versions, nil
}
