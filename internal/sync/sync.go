// Package sync drives one surveillance ingestion run: fetch each upstream
// domain, upsert it into durable storage, and record the outcome in the
// sync-run log. Subsystem failures are recorded, never retried, and never
// allowed to abort sibling subsystems.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/epiveille/epiveille/internal/models"
	"github.com/epiveille/epiveille/internal/observability"
)

// WastewaterFetcher retrieves the SUM'Eau feeds.
type WastewaterFetcher interface {
	FetchIndicators(ctx context.Context) ([]models.WastewaterIndicator, error)
	FetchStations(ctx context.Context) ([]models.Station, error)
}

// ClinicalFetcher retrieves weekly ER visit rates for every disease.
type ClinicalFetcher interface {
	FetchAll(ctx context.Context, department string) ([]models.ClinicalIndicator, error)
}

// RougeoleFetcher retrieves the measles notification export.
type RougeoleFetcher interface {
	Fetch(ctx context.Context) ([]models.RougeoleObservation, error)
}

// Storage is the durable-store surface the orchestrator writes through.
type Storage interface {
	UpsertStations(ctx context.Context, stations []models.Station) (int, error)
	UpsertWastewaterIndicators(ctx context.Context, indicators []models.WastewaterIndicator) (int, error)
	UpsertClinicalIndicators(ctx context.Context, indicators []models.ClinicalIndicator) (int, error)
	UpsertRougeoleIndicators(ctx context.Context, indicators []models.RougeoleIndicator) (int, error)
	CreateSyncRun(ctx context.Context, run models.SyncRun) error
	CompleteSyncRun(ctx context.Context, run models.SyncRun) error
}

// Orchestrator coordinates a full sync run over injected dependencies.
type Orchestrator struct {
	store      Storage
	wastewater WastewaterFetcher
	clinical   ClinicalFetcher
	rougeole   RougeoleFetcher
	clock      clockwork.Clock
	metrics    *observability.Metrics
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics attaches Prometheus instrumentation to the orchestrator.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New builds an Orchestrator. The clock is injected so run timing is
// deterministic under test.
func New(store Storage, wastewater WastewaterFetcher, clinical ClinicalFetcher, rougeole RougeoleFetcher, clock clockwork.Clock, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		wastewater: wastewater,
		clinical:   clinical,
		rougeole:   rougeole,
		clock:      clock,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one sync run. Subsystem errors end up in the result's error
// list; the returned error is non-nil only for bookkeeping failures on the
// run record itself, which callers must treat as a total run failure.
func (o *Orchestrator) Run(ctx context.Context) (models.SyncResult, error) {
	started := o.clock.Now().UTC()
	run := models.SyncRun{
		ID:        uuid.NewString(),
		StartedAt: started,
		Status:    models.SyncRunning,
	}

	if err := o.store.CreateSyncRun(ctx, run); err != nil {
		return models.SyncResult{}, fmt.Errorf("create sync run: %w", err)
	}

	var errs []string

	stationsCount, wastewaterCount, err := o.syncWastewater(ctx)
	if err != nil {
		errs = append(errs, fmt.Sprintf("wastewater sync failed: %v", err))
		o.countError("sumeau")
	}

	clinicalCount, err := o.syncClinical(ctx)
	if err != nil {
		errs = append(errs, fmt.Sprintf("clinical sync failed: %v", err))
		o.countError("clinical")
	}

	rougeoleCount, err := o.syncRougeole(ctx)
	if err != nil {
		errs = append(errs, fmt.Sprintf("rougeole sync failed: %v", err))
		o.countError("rougeole")
	}

	run.StationsCount = stationsCount
	run.WastewaterCount = wastewaterCount
	run.ClinicalCount = clinicalCount
	run.RougeoleCount = rougeoleCount
	run.Status = deriveStatus(errs, stationsCount, wastewaterCount, clinicalCount, rougeoleCount)
	run.Errors = errs

	completed := o.clock.Now().UTC()
	run.CompletedAt = &completed

	if err := o.store.CompleteSyncRun(ctx, run); err != nil {
		// Bookkeeping failure outside the per-subsystem isolation: force
		// the run to failed, still try to write the record once, and
		// propagate to the caller.
		run.Status = models.SyncFailed
		run.Errors = append(run.Errors, err.Error())
		if uerr := o.store.CompleteSyncRun(ctx, run); uerr != nil {
			log.Printf("sync: run record update failed twice: %v", uerr)
		}
		return o.result(run, started), fmt.Errorf("complete sync run: %w", err)
	}

	return o.result(run, started), nil
}

func (o *Orchestrator) result(run models.SyncRun, started time.Time) models.SyncResult {
	o.metrics.ObserveRun(
		string(run.Status),
		o.clock.Now().UTC().Sub(started).Seconds(),
		run.StationsCount, run.WastewaterCount, run.ClinicalCount, run.RougeoleCount,
	)
	return models.SyncResult{
		Status:          run.Status,
		StationsCount:   run.StationsCount,
		WastewaterCount: run.WastewaterCount,
		ClinicalCount:   run.ClinicalCount,
		RougeoleCount:   run.RougeoleCount,
		Errors:          run.Errors,
		DurationMs:      o.clock.Now().UTC().Sub(started).Milliseconds(),
	}
}

func (o *Orchestrator) countError(source string) {
	if o.metrics == nil {
		return
	}
	o.metrics.FetchErrors.WithLabelValues(source).Inc()
}

// syncWastewater fetches indicators and stations concurrently, then
// upserts stations before indicators.
func (o *Orchestrator) syncWastewater(ctx context.Context) (stationsCount, indicatorsCount int, err error) {
	type indicatorsResult struct {
		rows []models.WastewaterIndicator
		err  error
	}
	type stationsResult struct {
		rows []models.Station
		err  error
	}

	indicatorsCh := make(chan indicatorsResult, 1)
	stationsCh := make(chan stationsResult, 1)

	go func() {
		rows, err := o.wastewater.FetchIndicators(ctx)
		indicatorsCh <- indicatorsResult{rows: rows, err: err}
	}()
	go func() {
		rows, err := o.wastewater.FetchStations(ctx)
		stationsCh <- stationsResult{rows: rows, err: err}
	}()

	indicators := <-indicatorsCh
	stations := <-stationsCh

	if indicators.err != nil {
		return 0, 0, indicators.err
	}
	if stations.err != nil {
		return 0, 0, stations.err
	}

	stationsCount, err = o.store.UpsertStations(ctx, stations.rows)
	if err != nil {
		return stationsCount, 0, err
	}

	indicatorsCount, err = o.store.UpsertWastewaterIndicators(ctx, indicators.rows)
	return stationsCount, indicatorsCount, err
}

func (o *Orchestrator) syncClinical(ctx context.Context) (int, error) {
	indicators, err := o.clinical.FetchAll(ctx, "")
	if err != nil {
		return 0, err
	}
	return o.store.UpsertClinicalIndicators(ctx, indicators)
}

func (o *Orchestrator) syncRougeole(ctx context.Context) (int, error) {
	observations, err := o.rougeole.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	return o.store.UpsertRougeoleIndicators(ctx, BuildRougeoleRows(observations))
}

// deriveStatus maps the accumulated errors and per-subsystem counts onto
// the terminal run status.
func deriveStatus(errs []string, counts ...int) models.SyncStatus {
	if len(errs) == 0 {
		return models.SyncSuccess
	}
	for _, count := range counts {
		if count > 0 {
			return models.SyncPartial
		}
	}
	return models.SyncFailed
}
