package store

import (
	"context"

	"github.com/epiveille/epiveille/internal/models"
)

const createSyncRunSQL = `INSERT INTO sync_runs (id, started_at, status)
VALUES ($1,$2,$3)`

// CreateSyncRun inserts a new run record in the running state.
func (s *Store) CreateSyncRun(ctx context.Context, run models.SyncRun) error {
	_, err := s.pool.Exec(ctx, createSyncRunSQL, run.ID, run.StartedAt, run.Status)
	return err
}

const completeSyncRunSQL = `UPDATE sync_runs
SET completed_at = $2,
    status = $3,
    stations_count = $4,
    wastewater_count = $5,
    clinical_count = $6,
    rougeole_count = $7,
    errors = $8
WHERE id = $1`

// CompleteSyncRun records the terminal state of a run. Called exactly once
// per run; the error list is stored as NULL when empty.
func (s *Store) CompleteSyncRun(ctx context.Context, run models.SyncRun) error {
	var errs []string
	if len(run.Errors) > 0 {
		errs = run.Errors
	}

	_, err := s.pool.Exec(ctx, completeSyncRunSQL,
		run.ID,
		run.CompletedAt,
		run.Status,
		run.StationsCount,
		run.WastewaterCount,
		run.ClinicalCount,
		run.RougeoleCount,
		errs,
	)
	return err
}

const listSyncRunsSQL = `
    SELECT id, started_at, completed_at, status,
           stations_count, wastewater_count, clinical_count, rougeole_count, errors
    FROM sync_runs
    ORDER BY started_at DESC
    LIMIT $1
`

// ListSyncRuns returns the most recent runs, newest first.
func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	rows, err := s.pool.Query(ctx, listSyncRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]models.SyncRun, 0)
	for rows.Next() {
		var run models.SyncRun
		if err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Status,
			&run.StationsCount,
			&run.WastewaterCount,
			&run.ClinicalCount,
			&run.RougeoleCount,
			&run.Errors,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
