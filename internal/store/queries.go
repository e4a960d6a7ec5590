package store

import (
	"context"
	"strconv"

	"github.com/epiveille/epiveille/internal/models"
)

const listStationsSQL = `
    SELECT sandre_id, name, commune, population, lat, lng
    FROM stations
    ORDER BY name
`

// ListStations returns all station metadata ordered by name.
func (s *Store) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := s.pool.Query(ctx, listStationsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]models.Station, 0)
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.SandreID, &st.Name, &st.Commune, &st.Population, &st.Lat, &st.Lng); err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// WastewaterQuery holds filters for retrieving wastewater series.
type WastewaterQuery struct {
	StationIDs []string
	FromWeek   string
	ToWeek     string
}

// FetchWastewaterSeries returns indicators for a station set and week
// range, ordered by week.
func (s *Store) FetchWastewaterSeries(ctx context.Context, q WastewaterQuery) ([]models.WastewaterIndicator, error) {
	sql := `SELECT week, station_id, value, smoothed_value FROM wastewater_indicators WHERE 1=1`
	args := []any{}
	argPos := 1

	if len(q.StationIDs) > 0 {
		sql += ` AND station_id = ANY($` + strconv.Itoa(argPos) + `)`
		args = append(args, q.StationIDs)
		argPos++
	}
	if q.FromWeek != "" {
		sql += ` AND week >= $` + strconv.Itoa(argPos)
		args = append(args, q.FromWeek)
		argPos++
	}
	if q.ToWeek != "" {
		sql += ` AND week <= $` + strconv.Itoa(argPos)
		args = append(args, q.ToWeek)
		argPos++
	}
	sql += ` ORDER BY week, station_id`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indicators := make([]models.WastewaterIndicator, 0)
	for rows.Next() {
		var ind models.WastewaterIndicator
		if err := rows.Scan(&ind.Week, &ind.StationID, &ind.Value, &ind.SmoothedValue); err != nil {
			return nil, err
		}
		indicators = append(indicators, ind)
	}
	return indicators, rows.Err()
}

// ClinicalQuery holds filters for retrieving clinical series.
type ClinicalQuery struct {
	DiseaseIDs []models.DiseaseID
	Department string
	FromWeek   string
	ToWeek     string
}

// FetchClinicalSeries returns ER visit rates for a disease set, scope and
// week range, ordered by week.
func (s *Store) FetchClinicalSeries(ctx context.Context, q ClinicalQuery) ([]models.ClinicalIndicator, error) {
	department := q.Department
	if department == "" {
		department = models.NationalDepartment
	}

	sql := `SELECT week, disease_id, department, er_visit_rate FROM clinical_indicators WHERE department = $1`
	args := []any{department}
	argPos := 2

	if len(q.DiseaseIDs) > 0 {
		ids := make([]string, len(q.DiseaseIDs))
		for i, id := range q.DiseaseIDs {
			ids[i] = string(id)
		}
		sql += ` AND disease_id = ANY($` + strconv.Itoa(argPos) + `)`
		args = append(args, ids)
		argPos++
	}
	if q.FromWeek != "" {
		sql += ` AND week >= $` + strconv.Itoa(argPos)
		args = append(args, q.FromWeek)
		argPos++
	}
	if q.ToWeek != "" {
		sql += ` AND week <= $` + strconv.Itoa(argPos)
		args = append(args, q.ToWeek)
		argPos++
	}
	sql += ` ORDER BY week, disease_id`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indicators := make([]models.ClinicalIndicator, 0)
	for rows.Next() {
		var ind models.ClinicalIndicator
		if err := rows.Scan(&ind.Week, &ind.DiseaseID, &ind.Department, &ind.ERVisitRate); err != nil {
			return nil, err
		}
		indicators = append(indicators, ind)
	}
	return indicators, rows.Err()
}

// RougeoleQuery holds filters for retrieving measles series.
type RougeoleQuery struct {
	Department string
	FromYear   string
	ToYear     string
}

// FetchRougeoleSeries returns yearly measles rows for a department and
// year range, ordered by year.
func (s *Store) FetchRougeoleSeries(ctx context.Context, q RougeoleQuery) ([]models.RougeoleIndicator, error) {
	sql := `SELECT year, department, notification_rate, cases FROM rougeole_indicators WHERE 1=1`
	args := []any{}
	argPos := 1

	if q.Department != "" {
		sql += ` AND department = $` + strconv.Itoa(argPos)
		args = append(args, q.Department)
		argPos++
	}
	if q.FromYear != "" {
		sql += ` AND year >= $` + strconv.Itoa(argPos)
		args = append(args, q.FromYear)
		argPos++
	}
	if q.ToYear != "" {
		sql += ` AND year <= $` + strconv.Itoa(argPos)
		args = append(args, q.ToYear)
		argPos++
	}
	sql += ` ORDER BY year, department`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indicators := make([]models.RougeoleIndicator, 0)
	for rows.Next() {
		var ind models.RougeoleIndicator
		if err := rows.Scan(&ind.Year, &ind.Department, &ind.NotificationRate, &ind.Cases); err != nil {
			return nil, err
		}
		indicators = append(indicators, ind)
	}
	return indicators, rows.Err()
}

const recentWastewaterSQL = `
    SELECT week, station_id, value, smoothed_value
    FROM wastewater_indicators
    WHERE station_id = $1
    ORDER BY week DESC
    LIMIT $2
`

// RecentWastewaterValues returns the most recent indicators for one
// station, newest first. Used by the severity endpoints.
func (s *Store) RecentWastewaterValues(ctx context.Context, stationID string, limit int) ([]models.WastewaterIndicator, error) {
	rows, err := s.pool.Query(ctx, recentWastewaterSQL, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indicators := make([]models.WastewaterIndicator, 0)
	for rows.Next() {
		var ind models.WastewaterIndicator
		if err := rows.Scan(&ind.Week, &ind.StationID, &ind.Value, &ind.SmoothedValue); err != nil {
			return nil, err
		}
		indicators = append(indicators, ind)
	}
	return indicators, rows.Err()
}

const recentClinicalSQL = `
    SELECT week, disease_id, department, er_visit_rate
    FROM clinical_indicators
    WHERE disease_id = $1 AND department = $2
    ORDER BY week DESC
    LIMIT $3
`

// RecentClinicalRates returns the most recent ER visit rates for one
// disease and scope, newest first.
func (s *Store) RecentClinicalRates(ctx context.Context, diseaseID models.DiseaseID, department string, limit int) ([]models.ClinicalIndicator, error) {
	if department == "" {
		department = models.NationalDepartment
	}

	rows, err := s.pool.Query(ctx, recentClinicalSQL, diseaseID, department, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indicators := make([]models.ClinicalIndicator, 0)
	for rows.Next() {
		var ind models.ClinicalIndicator
		if err := rows.Scan(&ind.Week, &ind.DiseaseID, &ind.Department, &ind.ERVisitRate); err != nil {
			return nil, err
		}
		indicators = append(indicators, ind)
	}
	return indicators, rows.Err()
}
