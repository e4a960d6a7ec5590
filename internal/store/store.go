// Package store wraps Postgres access for the surveillance tables. All
// writes are batched keyed upserts so that re-running a sync over the same
// period is idempotent: last sync wins, row by row.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epiveille/epiveille/internal/models"
)

// upsertBatchSize caps how many rows are queued per pgx batch.
const upsertBatchSize = 500

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func chunk[T any](rows []T, size int) [][]T {
	chunks := make([][]T, 0, (len(rows)+size-1)/size)
	for size < len(rows) {
		rows, chunks = rows[size:], append(chunks, rows[:size])
	}
	if len(rows) > 0 {
		chunks = append(chunks, rows)
	}
	return chunks
}

const upsertStationSQL = `INSERT INTO stations (sandre_id, name, commune, population, lat, lng, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
ON CONFLICT (sandre_id) DO UPDATE
SET name = EXCLUDED.name,
    commune = EXCLUDED.commune,
    population = EXCLUDED.population,
    lat = EXCLUDED.lat,
    lng = EXCLUDED.lng,
    updated_at = NOW()`

// UpsertStations writes station metadata keyed by SANDRE ID and returns
// the number of rows written.
func (s *Store) UpsertStations(ctx context.Context, stations []models.Station) (int, error) {
	count := 0
	for _, batch := range chunk(stations, upsertBatchSize) {
		b := &pgx.Batch{}
		for _, st := range batch {
			b.Queue(upsertStationSQL, st.SandreID, st.Name, st.Commune, st.Population, st.Lat, st.Lng)
		}
		if err := s.sendBatch(ctx, b); err != nil {
			return count, err
		}
		count += len(batch)
	}
	return count, nil
}

const upsertWastewaterSQL = `INSERT INTO wastewater_indicators (week, station_id, value, smoothed_value)
VALUES ($1,$2,$3,$4)
ON CONFLICT (station_id, week) DO UPDATE
SET value = EXCLUDED.value,
    smoothed_value = EXCLUDED.smoothed_value`

// UpsertWastewaterIndicators writes weekly indicators keyed by
// (station_id, week).
func (s *Store) UpsertWastewaterIndicators(ctx context.Context, indicators []models.WastewaterIndicator) (int, error) {
	count := 0
	for _, batch := range chunk(indicators, upsertBatchSize) {
		b := &pgx.Batch{}
		for _, ind := range batch {
			b.Queue(upsertWastewaterSQL, ind.Week, ind.StationID, ind.Value, ind.SmoothedValue)
		}
		if err := s.sendBatch(ctx, b); err != nil {
			return count, err
		}
		count += len(batch)
	}
	return count, nil
}

const upsertClinicalSQL = `INSERT INTO clinical_indicators (week, disease_id, department, er_visit_rate)
VALUES ($1,$2,$3,$4)
ON CONFLICT (disease_id, week, department) DO UPDATE
SET er_visit_rate = EXCLUDED.er_visit_rate`

// UpsertClinicalIndicators writes weekly ER visit rates keyed by
// (disease_id, week, department).
func (s *Store) UpsertClinicalIndicators(ctx context.Context, indicators []models.ClinicalIndicator) (int, error) {
	count := 0
	for _, batch := range chunk(indicators, upsertBatchSize) {
		b := &pgx.Batch{}
		for _, ind := range batch {
			department := ind.Department
			if department == "" {
				department = models.NationalDepartment
			}
			b.Queue(upsertClinicalSQL, ind.Week, ind.DiseaseID, department, ind.ERVisitRate)
		}
		if err := s.sendBatch(ctx, b); err != nil {
			return count, err
		}
		count += len(batch)
	}
	return count, nil
}

const upsertRougeoleSQL = `INSERT INTO rougeole_indicators (year, department, notification_rate, cases)
VALUES ($1,$2,$3,$4)
ON CONFLICT (year, department) DO UPDATE
SET notification_rate = EXCLUDED.notification_rate,
    cases = EXCLUDED.cases`

// UpsertRougeoleIndicators writes yearly measles rows keyed by
// (year, department).
func (s *Store) UpsertRougeoleIndicators(ctx context.Context, indicators []models.RougeoleIndicator) (int, error) {
	count := 0
	for _, batch := range chunk(indicators, upsertBatchSize) {
		b := &pgx.Batch{}
		for _, ind := range batch {
			b.Queue(upsertRougeoleSQL, ind.Year, ind.Department, ind.NotificationRate, ind.Cases)
		}
		if err := s.sendBatch(ctx, b); err != nil {
			return count, err
		}
		count += len(batch)
	}
	return count, nil
}

func (s *Store) sendBatch(ctx context.Context, b *pgx.Batch) error {
	res := s.pool.SendBatch(ctx, b)
	defer res.Close()

	for i := 0; i < b.Len(); i++ {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}
