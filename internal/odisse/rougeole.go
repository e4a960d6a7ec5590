package odisse

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/epiveille/epiveille/internal/models"
)

// defaultRougeoleURL is the yearly measles notification export,
// pre-filtered server-side to the all-ages stratum.
const defaultRougeoleURL = "https://odisse.santepubliquefrance.fr/api/explore/v2.1/catalog/datasets/rougeole-donnees-declaration-obligatoire/exports/json?where=mdo_cl_age_rougeole%3D%22Tous%20%C3%A2ges%22"

const defaultRougeoleTimeout = 30 * time.Second

// RougeoleClient fetches the measles mandatory-notification export.
type RougeoleClient struct {
	http    *http.Client
	url     string
	timeout time.Duration
}

// RougeoleOption customizes a RougeoleClient.
type RougeoleOption func(*RougeoleClient)

// WithRougeoleURL overrides the export URL.
func WithRougeoleURL(u string) RougeoleOption {
	return func(c *RougeoleClient) { c.url = u }
}

// WithRougeoleTimeout overrides the request timeout.
func WithRougeoleTimeout(d time.Duration) RougeoleOption {
	return func(c *RougeoleClient) { c.timeout = d }
}

// NewRougeoleClient builds a RougeoleClient around the given HTTP client.
func NewRougeoleClient(httpClient *http.Client, opts ...RougeoleOption) *RougeoleClient {
	c := &RougeoleClient{
		http:    httpClient,
		url:     defaultRougeoleURL,
		timeout: defaultRougeoleTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the measles export and converts it into typed
// observations. Records missing a year or department code are dropped;
// numeric fields degrade to nil when absent or non-finite.
func (c *RougeoleClient) Fetch(ctx context.Context) ([]models.RougeoleObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request rougeole export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("odisse rougeole API error: %s", resp.Status)
	}

	var raw []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode rougeole export: %w", err)
	}

	var dropped int
	observations := make([]models.RougeoleObservation, 0, len(raw))
	for _, record := range raw {
		year, ok := yearString(record["annee"])
		if !ok {
			dropped++
			continue
		}
		dep, ok := record["dep"].(string)
		if !ok {
			dropped++
			continue
		}

		name, _ := record["libgeo"].(string)

		observations = append(observations, models.RougeoleObservation{
			Year:       year,
			Department: dep,
			Name:       name,
			Rate:       finiteNumber(record["tx"]),
			Cases:      finiteNumber(record["rou"]),
			Population: finiteNumber(record["population"]),
		})
	}

	if dropped > 0 {
		log.Printf("odisse: rougeole export: dropped %d records missing year or department", dropped)
	}

	return observations, nil
}

// yearString coerces an annee field (string or number) to its string form.
func yearString(v any) (string, bool) {
	switch year := v.(type) {
	case string:
		return year, true
	case float64:
		return strconv.FormatFloat(year, 'f', -1, 64), true
	default:
		return "", false
	}
}

func finiteNumber(v any) *float64 {
	num, ok := v.(float64)
	if !ok || math.IsNaN(num) || math.IsInf(num, 0) {
		return nil
	}
	return &num
}
