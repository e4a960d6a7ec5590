package odisse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiveille/epiveille/internal/models"
)

// clinicalServer serves canned paginated responses keyed by dataset ID.
func clinicalServer(t *testing.T, pages map[string][][]map[string]any, failing map[string]bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		require.Len(t, parts, 2)
		datasetID := parts[0]

		if failing[datasetID] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		datasetPages, ok := pages[datasetID]
		require.True(t, ok, "unexpected dataset %q", datasetID)

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		total := 0
		for _, page := range datasetPages {
			total += len(page)
		}

		page := offset / limit
		var results []map[string]any
		if page < len(datasetPages) {
			results = datasetPages[page]
		} else {
			results = []map[string]any{}
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_count": total,
			"results":     results,
		})
	}))
}

func weekRecord(week string, field string, rate any) map[string]any {
	return map[string]any{"semaine": week, field: rate}
}

func TestFetchDiseasePagination(t *testing.T) {
	fluMeta := models.ClinicalDatasets[models.DiseaseFlu]

	// Two full pages of 2 plus a short page of 1 -> 5 rows, then stop.
	pages := map[string][][]map[string]any{
		fluMeta.DatasetID: {
			{weekRecord("2024-S01", fluMeta.RateField, 10.0), weekRecord("2024-S02", fluMeta.RateField, 11.0)},
			{weekRecord("2024-S03", fluMeta.RateField, 12.0), weekRecord("2024-S04", fluMeta.RateField, nil)},
			{weekRecord("2024-S05", fluMeta.RateField, 14.0)},
		},
	}

	server := clinicalServer(t, pages, nil)
	defer server.Close()

	client := NewClinicalClient(http.DefaultClient, WithBaseURL(server.URL), WithPageSize(2))
	rows, err := client.FetchByDisease(context.Background(), []models.DiseaseID{models.DiseaseFlu}, "")

	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "2024-W01", rows[0].Week)
	assert.Equal(t, "2024-W05", rows[4].Week)
	assert.Equal(t, models.NationalDepartment, rows[0].Department)
	assert.Nil(t, rows[3].ERVisitRate, "null rate must stay null")
	require.NotNil(t, rows[2].ERVisitRate)
	assert.Equal(t, 12.0, *rows[2].ERVisitRate)
}

func TestFetchByDiseaseIsolation(t *testing.T) {
	fluMeta := models.ClinicalDatasets[models.DiseaseFlu]
	covidMeta := models.ClinicalDatasets[models.DiseaseCovidClinical]

	pages := map[string][][]map[string]any{
		covidMeta.DatasetID: {
			{
				weekRecord("2024-S03", covidMeta.RateField, 3.0),
				weekRecord("2024-S01", covidMeta.RateField, 1.0),
				weekRecord("2024-S05", covidMeta.RateField, 5.0),
				weekRecord("2024-S02", covidMeta.RateField, 2.0),
				weekRecord("2024-S04", covidMeta.RateField, 4.0),
			},
		},
	}
	failing := map[string]bool{fluMeta.DatasetID: true}

	server := clinicalServer(t, pages, failing)
	defer server.Close()

	client := NewClinicalClient(http.DefaultClient, WithBaseURL(server.URL))
	rows, err := client.FetchByDisease(
		context.Background(),
		[]models.DiseaseID{models.DiseaseFlu, models.DiseaseCovidClinical},
		"",
	)

	require.NoError(t, err, "a failing disease must not abort the whole fetch")
	require.Len(t, rows, 5)
	for _, row := range rows {
		assert.Equal(t, models.DiseaseCovidClinical, row.DiseaseID)
	}
	assert.True(t, sort.SliceIsSorted(rows, func(i, j int) bool {
		return rows[i].Week < rows[j].Week
	}), "merged rows must be sorted by week")
}

func TestFetchDiseaseDepartmentScope(t *testing.T) {
	fluMeta := models.ClinicalDatasets[models.DiseaseFlu]

	var gotWhere string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Department queries must hit the department dataset variant.
		assert.True(t, strings.Contains(r.URL.Path, fluMeta.DepartmentDatasetID))
		gotWhere = r.URL.Query().Get("where")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_count": 1,
			"results":     []map[string]any{weekRecord("2024-S01", fluMeta.RateField, 9.0)},
		})
	}))
	defer server.Close()

	client := NewClinicalClient(http.DefaultClient, WithBaseURL(server.URL))
	rows, err := client.FetchByDisease(context.Background(), []models.DiseaseID{models.DiseaseFlu}, "75")

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "75", rows[0].Department)
	assert.Equal(t, fmt.Sprintf("sursaud_cl_age_gene='%s' AND dep='75'", fluMeta.AgeFilter), gotWhere)
}

func TestFetchDiseaseNonStringWeekSkipped(t *testing.T) {
	fluMeta := models.ClinicalDatasets[models.DiseaseFlu]
	pages := map[string][][]map[string]any{
		fluMeta.DatasetID: {
			{
				map[string]any{"semaine": 2024, fluMeta.RateField: 1.0},
				weekRecord("2024-S07", fluMeta.RateField, 2.0),
			},
		},
	}

	server := clinicalServer(t, pages, nil)
	defer server.Close()

	client := NewClinicalClient(http.DefaultClient, WithBaseURL(server.URL))
	rows, err := client.FetchByDisease(context.Background(), []models.DiseaseID{models.DiseaseFlu}, "")

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-W07", rows[0].Week)
}
