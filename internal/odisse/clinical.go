// Package odisse queries the Santé publique France Odissé API: paginated
// clinical ER-visit datasets and the yearly measles notification export.
package odisse

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/epiveille/epiveille/internal/models"
	"github.com/epiveille/epiveille/internal/parse"
)

const (
	defaultAPIBase  = "https://odisse.santepubliquefrance.fr/api/explore/v2.1/catalog/datasets"
	defaultPageSize = 100

	defaultClinicalTimeout = 15 * time.Second
)

// recordsResponse is the Odissé API v2.1 paginated response envelope.
type recordsResponse struct {
	TotalCount int              `json:"total_count"`
	Results    []map[string]any `json:"results"`
}

// ClinicalClient fetches weekly ER visit rates per disease.
type ClinicalClient struct {
	http     *http.Client
	baseURL  string
	pageSize int
	timeout  time.Duration
}

// ClinicalOption customizes a ClinicalClient.
type ClinicalOption func(*ClinicalClient)

// WithBaseURL overrides the Odissé API base URL.
func WithBaseURL(base string) ClinicalOption {
	return func(c *ClinicalClient) { c.baseURL = base }
}

// WithPageSize overrides the pagination page size.
func WithPageSize(n int) ClinicalOption {
	return func(c *ClinicalClient) { c.pageSize = n }
}

// WithClinicalTimeout overrides the per-request timeout.
func WithClinicalTimeout(d time.Duration) ClinicalOption {
	return func(c *ClinicalClient) { c.timeout = d }
}

// NewClinicalClient builds a ClinicalClient around the given HTTP client.
func NewClinicalClient(httpClient *http.Client, opts ...ClinicalOption) *ClinicalClient {
	c := &ClinicalClient{
		http:     httpClient,
		baseURL:  defaultAPIBase,
		pageSize: defaultPageSize,
		timeout:  defaultClinicalTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAll fetches every supported disease for the given scope. An empty
// department means the national datasets.
func (c *ClinicalClient) FetchAll(ctx context.Context, department string) ([]models.ClinicalIndicator, error) {
	return c.FetchByDisease(ctx, models.DiseaseIDs, department)
}

// FetchByDisease fans out one fetch per disease and merges the results
// sorted by week. A failing disease logs a warning and contributes no
// rows; it never aborts its siblings, so the call itself cannot fail.
func (c *ClinicalClient) FetchByDisease(ctx context.Context, diseases []models.DiseaseID, department string) ([]models.ClinicalIndicator, error) {
	type diseaseResult struct {
		disease models.DiseaseID
		rows    []models.ClinicalIndicator
		err     error
	}

	results := make(chan diseaseResult, len(diseases))
	for _, disease := range diseases {
		go func(disease models.DiseaseID) {
			rows, err := c.fetchDisease(ctx, disease, department)
			results <- diseaseResult{disease: disease, rows: rows, err: err}
		}(disease)
	}

	indicators := make([]models.ClinicalIndicator, 0)
	for range diseases {
		res := <-results
		if res.err != nil {
			log.Printf("odisse: clinical fetch failed for %s: %v", res.disease, res.err)
			continue
		}
		indicators = append(indicators, res.rows...)
	}

	// Lexicographic week order is chronological: the canonical label is
	// fixed-width and zero-padded.
	sort.SliceStable(indicators, func(i, j int) bool {
		return indicators[i].Week < indicators[j].Week
	})

	return indicators, nil
}

// fetchDisease pulls every page for one disease, in server-assigned offset
// order, stopping on a short page or when the reported total is reached.
func (c *ClinicalClient) fetchDisease(ctx context.Context, disease models.DiseaseID, department string) ([]models.ClinicalIndicator, error) {
	meta, ok := models.ClinicalDatasets[disease]
	if !ok {
		return nil, fmt.Errorf("unknown disease %q", disease)
	}

	datasetID := meta.DatasetID
	where := fmt.Sprintf("sursaud_cl_age_gene='%s'", meta.AgeFilter)
	scope := models.NationalDepartment
	if department != "" {
		datasetID = meta.DepartmentDatasetID
		where += fmt.Sprintf(" AND dep='%s'", department)
		scope = department
	}

	query := url.Values{}
	query.Set("where", where)
	query.Set("select", "semaine,"+meta.RateField)
	query.Set("order_by", "semaine ASC")
	query.Set("limit", fmt.Sprint(c.pageSize))

	indicators := make([]models.ClinicalIndicator, 0)
	offset := 0
	for {
		query.Set("offset", fmt.Sprint(offset))
		pageURL := fmt.Sprintf("%s/%s/records?%s", c.baseURL, datasetID, query.Encode())

		page, err := c.fetchPage(ctx, disease, pageURL)
		if err != nil {
			return nil, err
		}

		for _, record := range page.Results {
			weekRaw, _ := record["semaine"].(string)
			if weekRaw == "" {
				continue
			}

			var rate *float64
			if v, ok := record[meta.RateField].(float64); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
				rate = &v
			}

			indicators = append(indicators, models.ClinicalIndicator{
				Week:        parse.NormalizeWeek(weekRaw),
				DiseaseID:   disease,
				Department:  scope,
				ERVisitRate: rate,
			})
		}

		offset += len(page.Results)
		if len(page.Results) < c.pageSize || offset >= page.TotalCount {
			break
		}
	}

	return indicators, nil
}

func (c *ClinicalClient) fetchPage(ctx context.Context, disease models.DiseaseID, pageURL string) (recordsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return recordsResponse{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return recordsResponse{}, fmt.Errorf("request %s records: %w", disease, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return recordsResponse{}, fmt.Errorf("odisse API error for %s: %s", disease, resp.Status)
	}

	var page recordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return recordsResponse{}, fmt.Errorf("decode %s records: %w", disease, err)
	}

	return page, nil
}
