package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/epiveille/epiveille/internal/models"
	"github.com/epiveille/epiveille/internal/severity"
	"github.com/epiveille/epiveille/internal/store"
)

// handleListStations returns all station metadata.
// GET /api/v1/stations
func (s *Server) handleListStations(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stations, err := s.store.ListStations(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stations,
		"meta": gin.H{"count": len(stations)},
	})
}

// handleListDiseases returns the clinical disease catalog.
// GET /api/v1/diseases
func (s *Server) handleListDiseases(c *gin.Context) {
	diseases := make([]gin.H, 0, len(models.DiseaseIDs))
	for _, id := range models.DiseaseIDs {
		meta := models.ClinicalDatasets[id]
		diseases = append(diseases, gin.H{
			"id":    id,
			"label": meta.Label,
			"color": meta.Color,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": diseases,
		"meta": gin.H{"count": len(diseases)},
	})
}

// handleWastewaterSeries returns weekly indicators for a station set and
// week range.
// GET /api/v1/wastewater?stations=Marseille,National_54&from=2024-W01&to=2024-W26
func (s *Server) handleWastewaterSeries(c *gin.Context) {
	q := store.WastewaterQuery{
		StationIDs: splitParam(c.Query("stations")),
		FromWeek:   c.Query("from"),
		ToWeek:     c.Query("to"),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	indicators, err := s.store.FetchWastewaterSeries(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": indicators,
		"meta": gin.H{"count": len(indicators)},
	})
}

// handleClinicalSeries returns weekly ER visit rates for a disease set,
// department scope and week range.
// GET /api/v1/clinical?diseases=flu,covid_clinical&department=75&from=2024-W01
func (s *Server) handleClinicalSeries(c *gin.Context) {
	diseases := make([]models.DiseaseID, 0)
	for _, raw := range splitParam(c.Query("diseases")) {
		id := models.DiseaseID(raw)
		if _, ok := models.ClinicalDatasets[id]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown disease: " + raw})
			return
		}
		diseases = append(diseases, id)
	}

	q := store.ClinicalQuery{
		DiseaseIDs: diseases,
		Department: c.Query("department"),
		FromWeek:   c.Query("from"),
		ToWeek:     c.Query("to"),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	indicators, err := s.store.FetchClinicalSeries(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": indicators,
		"meta": gin.H{"count": len(indicators)},
	})
}

// handleRougeoleSeries returns yearly measles rows.
// GET /api/v1/rougeole?department=national&from=2018&to=2024
func (s *Server) handleRougeoleSeries(c *gin.Context) {
	q := store.RougeoleQuery{
		Department: c.Query("department"),
		FromYear:   c.Query("from"),
		ToYear:     c.Query("to"),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	indicators, err := s.store.FetchRougeoleSeries(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": indicators,
		"meta": gin.H{"count": len(indicators)},
	})
}

// handleWastewaterSeverity classifies the latest reading of one station
// against its recent history. The "national" alias maps to the national
// aggregate column.
// GET /api/v1/severity/wastewater/:station
func (s *Server) handleWastewaterSeverity(c *gin.Context) {
	stationID := c.Param("station")
	if stationID == "national" {
		stationID = models.NationalStationID
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rows, err := s.store.RecentWastewaterValues(ctx, stationID, s.cfg.SeverityWindow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for station"})
		return
	}

	history := make([]*float64, len(rows))
	for i, row := range rows {
		history[i] = row.SmoothedValue
	}

	c.JSON(http.StatusOK, severityResponse(gin.H{"station_id": stationID, "week": rows[0].Week}, history))
}

// handleClinicalSeverity classifies the latest ER visit rate of one
// disease against its recent history.
// GET /api/v1/severity/clinical/:disease?department=75
func (s *Server) handleClinicalSeverity(c *gin.Context) {
	diseaseID := models.DiseaseID(c.Param("disease"))
	if _, ok := models.ClinicalDatasets[diseaseID]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown disease: " + string(diseaseID)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rows, err := s.store.RecentClinicalRates(ctx, diseaseID, c.Query("department"), s.cfg.SeverityWindow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for disease"})
		return
	}

	history := make([]*float64, len(rows))
	for i, row := range rows {
		history[i] = row.ERVisitRate
	}

	c.JSON(http.StatusOK, severityResponse(gin.H{
		"disease_id": diseaseID,
		"department": rows[0].Department,
		"week":       rows[0].Week,
	}, history))
}

// severityResponse classifies a newest-first value series: the head is
// the current value, the value two periods prior is the trend reference,
// and the whole window is the percentile history.
func severityResponse(fields gin.H, history []*float64) gin.H {
	current := history[0]
	var reference *float64
	if len(history) >= 3 {
		reference = history[2]
	}

	level := severity.CalculateSeverityLevel(current, history)
	trend := severity.CalculateTrend(current, reference)

	fields["level"] = level
	fields["label"] = level.Label()
	fields["color"] = level.Color()
	fields["trend"] = trend
	return fields
}

// handleListSyncRuns returns the most recent sync runs.
// GET /api/v1/sync/runs
func (s *Server) handleListSyncRuns(c *gin.Context) {
	limit := s.cfg.SyncRunListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	runs, err := s.store.ListSyncRuns(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": runs,
		"meta": gin.H{"count": len(runs)},
	})
}

// handleTriggerSync runs one sync and reports the outcome. A partial or
// failed sync is still a transport-level success; only orchestrator
// bookkeeping failures surface as 500.
// POST /api/v1/sync
func (s *Server) handleTriggerSync(c *gin.Context) {
	result, err := s.syncer.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  err.Error(),
			"status": models.SyncFailed,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
