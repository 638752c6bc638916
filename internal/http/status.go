package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andygrunwald/oil-price-api/internal/database"
	"github.com/andygrunwald/oil-price-api/internal/models"
	"github.com/andygrunwald/oil-price-api/internal/service"
)

// StatusSource reports the state of the database.
type StatusSource interface {
	Ping(ctx context.Context) error
	GetCounts(ctx context.Context) (database.Counts, error)
}

// StatusHandler handles the /status endpoint.
type StatusHandler struct {
	db        StatusSource
	catalog   *service.Catalog
	metrics   *Metrics
	version   string
	startTime time.Time
}

// NewStatusHandler creates a new StatusHandler. db may be nil.
func NewStatusHandler(db StatusSource, catalog *service.Catalog, metrics *Metrics, version string) *StatusHandler {
	return &StatusHandler{
		db:        db,
		catalog:   catalog,
		metrics:   metrics,
		version:   version,
		startTime: time.Now(),
	}
}

// Status serves the service status as JSON.
func (h *StatusHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	response := models.StatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Version:       h.version,
	}

	response.Database = h.getDatabaseStatus(ctx)
	if !response.Database.Connected {
		response.Status = "degraded"
	}

	// An empty scraping log is not an error here.
	if run, err := h.catalog.LastScrapingRun(ctx); err == nil {
		response.LastScrapingRun = run
	}

	c.JSON(http.StatusOK, response)
}

func (h *StatusHandler) getDatabaseStatus(ctx context.Context) models.DatabaseStatus {
	status := models.DatabaseStatus{
		Connected: false,
	}

	if h.db == nil {
		return status
	}

	if err := h.db.Ping(ctx); err != nil {
		return status
	}
	status.Connected = true

	counts, err := h.db.GetCounts(ctx)
	if err == nil {
		status.ProvidersCount = counts.Providers
		status.ZonesCount = counts.Zones
		status.PricesCount = counts.Prices

		h.metrics.RecordRowsStored("providers", float64(counts.Providers))
		h.metrics.RecordRowsStored("delivery_zones", float64(counts.Zones))
		h.metrics.RecordRowsStored("oil_prices", float64(counts.Prices))
	}

	return status
}
