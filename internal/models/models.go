package models

import "time"

// NationalStationID is the reserved column name that carries the national
// aggregate series inside the wastewater indicators feed.
const NationalStationID = "National_54"

// NationalDepartment is the sentinel department code used for national rows.
const NationalDepartment = "national"

// WastewaterIndicator is one weekly viral-load reading for one station.
type WastewaterIndicator struct {
	Week          string   `json:"week"`
	StationID     string   `json:"station_id"`
	Value         *float64 `json:"value"`
	SmoothedValue *float64 `json:"smoothed_value"`
}

// Station describes a wastewater monitoring station. SandreID is the
// stable external identifier; Name doubles as the join key into the
// wide-format indicators feed.
type Station struct {
	SandreID   string  `json:"sandre_id"`
	Name       string  `json:"name"`
	Commune    string  `json:"commune"`
	Population int     `json:"population"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// DiseaseID identifies a clinical surveillance dataset.
type DiseaseID string

const (
	DiseaseFlu           DiseaseID = "flu"
	DiseaseBronchiolitis DiseaseID = "bronchiolitis"
	DiseaseCovidClinical DiseaseID = "covid_clinical"
)

// DiseaseIDs lists the supported diseases in display order.
var DiseaseIDs = []DiseaseID{DiseaseFlu, DiseaseBronchiolitis, DiseaseCovidClinical}

// ClinicalIndicator is one weekly ER visit rate for one disease and scope.
type ClinicalIndicator struct {
	Week        string    `json:"week"`
	DiseaseID   DiseaseID `json:"disease_id"`
	Department  string    `json:"department"`
	ERVisitRate *float64  `json:"er_visit_rate"`
}

// DatasetMeta holds the Odissé API configuration for one clinical dataset.
type DatasetMeta struct {
	Label               string
	DatasetID           string
	DepartmentDatasetID string
	RateField           string
	AgeFilter           string
	Color               string
}

// ClinicalDatasets maps each disease to its Odissé dataset configuration.
var ClinicalDatasets = map[DiseaseID]DatasetMeta{
	DiseaseFlu: {
		Label:               "Grippe",
		DatasetID:           "grippe-passages-aux-urgences-et-actes-sos-medecins-france",
		DepartmentDatasetID: "grippe-passages-aux-urgences-et-actes-sos-medecins-departement",
		RateField:           "taux_passages_grippe_sau",
		AgeFilter:           "Tous âges",
		Color:               "hsl(0, 75%, 55%)",
	},
	DiseaseBronchiolitis: {
		Label:               "Bronchiolite <1 an",
		DatasetID:           "bronchiolite-passages-aux-urgences-et-actes-sos-medecins-france",
		DepartmentDatasetID: "bronchiolite-passages-aux-urgences-et-actes-sos-medecins-departement",
		RateField:           "taux_passages_bronchio_sau",
		AgeFilter:           "0 an",
		Color:               "hsl(190, 80%, 45%)",
	},
	DiseaseCovidClinical: {
		Label:               "COVID-19",
		DatasetID:           "covid-19-passages-aux-urgences-et-actes-sos-medecins-france",
		DepartmentDatasetID: "covid-19-passages-aux-urgences-et-actes-sos-medecins-departement",
		RateField:           "taux_passages_covid_sau",
		AgeFilter:           "Tous âges",
		Color:               "hsl(45, 90%, 50%)",
	},
}

// RougeoleObservation is one department/year record as returned by the
// measles notification export, before aggregation.
type RougeoleObservation struct {
	Year       string   `json:"year"`
	Department string   `json:"department"`
	Name       string   `json:"name"`
	Rate       *float64 `json:"rate"`
	Cases      *float64 `json:"cases"`
	Population *float64 `json:"population"`
}

// RougeoleIndicator is the persisted yearly measles row, unique on
// (year, department). Department may be the national sentinel.
type RougeoleIndicator struct {
	Year             string   `json:"year"`
	Department       string   `json:"department"`
	NotificationRate *float64 `json:"notification_rate"`
	Cases            *int     `json:"cases"`
}

// SyncStatus is the lifecycle state of a sync run.
type SyncStatus string

const (
	SyncRunning SyncStatus = "running"
	SyncSuccess SyncStatus = "success"
	SyncPartial SyncStatus = "partial"
	SyncFailed  SyncStatus = "failed"
)

// SyncRun is one row of the sync-run log. Created in the running state
// and updated exactly once on completion.
type SyncRun struct {
	ID              string     `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Status          SyncStatus `json:"status"`
	StationsCount   int        `json:"stations_count"`
	WastewaterCount int        `json:"wastewater_count"`
	ClinicalCount   int        `json:"clinical_count"`
	RougeoleCount   int        `json:"rougeole_count"`
	Errors          []string   `json:"errors,omitempty"`
}

// SyncResult is the outcome reported to the caller that triggered a run.
type SyncResult struct {
	Status          SyncStatus `json:"status"`
	StationsCount   int        `json:"stations_count"`
	WastewaterCount int        `json:"wastewater_count"`
	ClinicalCount   int        `json:"clinical_count"`
	RougeoleCount   int        `json:"rougeole_count"`
	Errors          []string   `json:"errors"`
	DurationMs      int64      `json:"duration_ms"`
}
