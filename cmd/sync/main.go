package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/epiveille/epiveille/internal/config"
	"github.com/epiveille/epiveille/internal/models"
	"github.com/epiveille/epiveille/internal/odisse"
	"github.com/epiveille/epiveille/internal/store"
	"github.com/epiveille/epiveille/internal/sumeau"
	syncpkg "github.com/epiveille/epiveille/internal/sync"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("sync failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	httpClient := &http.Client{Timeout: cfg.RougeoleTimeout}

	wastewater := sumeau.NewClient(httpClient,
		sumeau.WithIndicatorURLs(sumeau.SourcePair{Primary: cfg.IndicatorsPrimaryURL, Fallback: cfg.IndicatorsFallbackURL}),
		sumeau.WithStationURLs(sumeau.SourcePair{Primary: cfg.StationsPrimaryURL, Fallback: cfg.StationsFallbackURL}),
		sumeau.WithTimeout(cfg.RequestTimeout),
	)

	clinicalOpts := []odisse.ClinicalOption{odisse.WithClinicalTimeout(cfg.RequestTimeout)}
	if cfg.OdisseBaseURL != "" {
		clinicalOpts = append(clinicalOpts, odisse.WithBaseURL(cfg.OdisseBaseURL))
	}
	clinical := odisse.NewClinicalClient(httpClient, clinicalOpts...)

	rougeoleOpts := []odisse.RougeoleOption{odisse.WithRougeoleTimeout(cfg.RougeoleTimeout)}
	if cfg.RougeoleURL != "" {
		rougeoleOpts = append(rougeoleOpts, odisse.WithRougeoleURL(cfg.RougeoleURL))
	}
	rougeole := odisse.NewRougeoleClient(httpClient, rougeoleOpts...)

	orchestrator := syncpkg.New(st, wastewater, clinical, rougeole, clockwork.NewRealClock())

	result, err := orchestrator.Run(ctx)
	log.Printf("sync finished status=%s stations=%d wastewater=%d clinical=%d rougeole=%d duration=%dms",
		result.Status, result.StationsCount, result.WastewaterCount, result.ClinicalCount, result.RougeoleCount, result.DurationMs)
	for _, msg := range result.Errors {
		log.Printf("sync error: %s", msg)
	}
	if err != nil {
		return err
	}
	if result.Status == models.SyncFailed {
		log.Printf("all sources failed; nothing was updated")
	}
	return nil
}
