package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/epiveille/epiveille/internal/config"
	"github.com/epiveille/epiveille/internal/httpapi"
	"github.com/epiveille/epiveille/internal/observability"
	"github.com/epiveille/epiveille/internal/odisse"
	"github.com/epiveille/epiveille/internal/store"
	"github.com/epiveille/epiveille/internal/sumeau"
	syncpkg "github.com/epiveille/epiveille/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection error: %v", err)
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

	metrics := observability.NewMetrics()
	orchestrator := syncpkg.New(st, wastewater, clinical, rougeole, clockwork.NewRealClock(), syncpkg.WithMetrics(metrics))

	srv := httpapi.New(cfg, st, orchestrator)
	log.Printf("REST API listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
