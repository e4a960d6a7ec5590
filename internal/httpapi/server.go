// Package httpapi serves the surveillance REST API: read endpoints over
// the durable store, on-demand severity classification, and the
// authenticated sync trigger.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/epiveille/epiveille/internal/config"
	"github.com/epiveille/epiveille/internal/models"
	"github.com/epiveille/epiveille/internal/store"
)

// DataStore is the read surface the API serves from.
type DataStore interface {
	Ping(ctx context.Context) error
	ListStations(ctx context.Context) ([]models.Station, error)
	FetchWastewaterSeries(ctx context.Context, q store.WastewaterQuery) ([]models.WastewaterIndicator, error)
	FetchClinicalSeries(ctx context.Context, q store.ClinicalQuery) ([]models.ClinicalIndicator, error)
	FetchRougeoleSeries(ctx context.Context, q store.RougeoleQuery) ([]models.RougeoleIndicator, error)
	RecentWastewaterValues(ctx context.Context, stationID string, limit int) ([]models.WastewaterIndicator, error)
	RecentClinicalRates(ctx context.Context, diseaseID models.DiseaseID, department string, limit int) ([]models.ClinicalIndicator, error)
	ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
}

// Syncer triggers one full data sync run.
type Syncer interface {
	Run(ctx context.Context) (models.SyncResult, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg    config.Config
	store  DataStore
	syncer Syncer
	engine *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, dataStore DataStore, syncer Syncer) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(corsMiddleware())

	server := &Server{cfg: cfg, store: dataStore, syncer: syncer, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/healthz/db", s.handleDBHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/stations", s.handleListStations)
		v1.GET("/diseases", s.handleListDiseases)
		v1.GET("/wastewater", s.handleWastewaterSeries)
		v1.GET("/clinical", s.handleClinicalSeries)
		v1.GET("/rougeole", s.handleRougeoleSeries)
		v1.GET("/severity/wastewater/:station", s.handleWastewaterSeverity)
		v1.GET("/severity/clinical/:disease", s.handleClinicalSeverity)
		v1.GET("/sync/runs", s.handleListSyncRuns)
	}

	syncRoute := v1.Group("")
	if s.cfg.SyncToken != "" {
		syncRoute.Use(bearerAuthMiddleware(s.cfg.SyncToken))
	}
	// External schedulers trigger syncs with GET; POST is the manual path.
	syncRoute.POST("/sync", s.handleTriggerSync)
	syncRoute.GET("/sync", s.handleTriggerSync)
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) handleDBHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
