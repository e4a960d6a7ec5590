// Package sumeau fetches and parses the SUM'Eau wastewater surveillance
// feeds: weekly viral indicators and station metadata. Each feed has a
// primary CSV endpoint on data.gouv.fr and a JSON fallback on Odissé.
package sumeau

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/epiveille/epiveille/internal/models"
)

const (
	defaultIndicatorsPrimary  = "https://www.data.gouv.fr/api/1/datasets/r/2963ccb5-344d-4978-bdd3-08aaf9efe514"
	defaultIndicatorsFallback = "https://odisse.santepubliquefrance.fr/explore/dataset/sum-eau-indicateurs/download?format=json"
	defaultStationsPrimary    = "https://www.data.gouv.fr/api/1/datasets/r/dd9cf705-a759-46c6-afd6-bc85cf25f363"
	defaultStationsFallback   = "https://odisse.santepubliquefrance.fr/explore/dataset/sumeau_stations/download?format=json"

	defaultTimeout = 15 * time.Second
)

// SourcePair is a primary endpoint plus its fallback.
type SourcePair struct {
	Primary  string
	Fallback string
}

// merge overlays non-empty fields of o onto p.
func (p SourcePair) merge(o SourcePair) SourcePair {
	if o.Primary != "" {
		p.Primary = o.Primary
	}
	if o.Fallback != "" {
		p.Fallback = o.Fallback
	}
	return p
}

// Client fetches SUM'Eau data over HTTP with a try-primary-then-fallback
// chain per feed.
type Client struct {
	http       *http.Client
	indicators SourcePair
	stations   SourcePair
	timeout    time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithIndicatorURLs overrides the indicator feed endpoints. Empty fields
// keep the published defaults.
func WithIndicatorURLs(pair SourcePair) Option {
	return func(c *Client) { c.indicators = c.indicators.merge(pair) }
}

// WithStationURLs overrides the station feed endpoints. Empty fields keep
// the published defaults.
func WithStationURLs(pair SourcePair) Option {
	return func(c *Client) { c.stations = c.stations.merge(pair) }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient builds a Client around the given HTTP client.
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		http:       httpClient,
		indicators: SourcePair{Primary: defaultIndicatorsPrimary, Fallback: defaultIndicatorsFallback},
		stations:   SourcePair{Primary: defaultStationsPrimary, Fallback: defaultStationsFallback},
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchIndicators retrieves wastewater indicators, trying the primary CSV
// endpoint first and the Odissé JSON fallback on any failure. An error is
// returned only when both sources are exhausted.
func (c *Client) FetchIndicators(ctx context.Context) ([]models.WastewaterIndicator, error) {
	if data, err := c.fetch(ctx, c.indicators.Primary); err == nil {
		indicators, perr := ParseIndicatorsCSV(bytes.NewReader(data))
		if perr == nil {
			return indicators, nil
		}
		log.Printf("sumeau: primary indicators parse failed: %v", perr)
	} else {
		log.Printf("sumeau: primary indicators fetch failed: %v", err)
	}

	data, err := c.fetch(ctx, c.indicators.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fetch indicators from both primary and fallback endpoints: %w", err)
	}
	return ParseIndicatorsJSON(data)
}

// FetchStations retrieves station metadata with the same fallback chain
// as FetchIndicators.
func (c *Client) FetchStations(ctx context.Context) ([]models.Station, error) {
	if data, err := c.fetch(ctx, c.stations.Primary); err == nil {
		stations, perr := ParseStationsCSV(bytes.NewReader(data))
		if perr == nil {
			return stations, nil
		}
		log.Printf("sumeau: primary stations parse failed: %v", perr)
	} else {
		log.Printf("sumeau: primary stations fetch failed: %v", err)
	}

	data, err := c.fetch(ctx, c.stations.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fetch stations from both primary and fallback endpoints: %w", err)
	}
	return ParseStationsJSON(data)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}

	return io.ReadAll(resp.Body)
}
