package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/oil-price-api/internal/models"
	"github.com/andygrunwald/oil-price-api/internal/service"
)

// Handlers serves the auth and resource routes.
type Handlers struct {
	credentials        *service.Credentials
	catalog            *service.Catalog
	metrics            *Metrics
	logger             zerolog.Logger
	hideInternalErrors bool
}

// NewHandlers creates the route handlers.
func NewHandlers(credentials *service.Credentials, catalog *service.Catalog, metrics *Metrics, hideInternalErrors bool, logger zerolog.Logger) *Handlers {
	return &Handlers{
		credentials:        credentials,
		catalog:            catalog,
		metrics:            metrics,
		logger:             logger.With().Str("component", "handlers").Logger(),
		hideInternalErrors: hideInternalErrors,
	}
}

func created(resource service.Resource, id int64) messageResponse {
	return messageResponse{ID: id, Message: fmt.Sprintf("Created %s with id: %d", resource, id)}
}

func updated(resource service.Resource, id int64) messageResponse {
	return messageResponse{ID: id, Message: fmt.Sprintf("Updated %s with id: %d", resource, id)}
}

func deleted(resource service.Resource, id int64) messageResponse {
	return messageResponse{ID: id, Message: fmt.Sprintf("Deleted %s with id: %d", resource, id)}
}

// pathID parses the positive integer path parameter name.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidRequest{fmt.Errorf("%s must be a positive integer", name)}
	}
	return id, nil
}

func bindJSON(c *gin.Context, dest any) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return errInvalidRequest{err}
	}
	return nil
}

// Register handles POST /auth/create.
func (h *Handlers) Register(c *gin.Context) {
	var payload models.AuthPayload
	if err := bindJSON(c, &payload); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.credentials.Register(c.Request.Context(), payload.ClientID, payload.ClientSecret); err != nil {
		h.metrics.RecordAuthAttempt("register", "failure")
		h.fail(c, err)
		return
	}

	h.metrics.RecordAuthAttempt("register", "success")
	c.JSON(http.StatusOK, messageResponse{Message: "Created user " + payload.ClientID})
}

// Login handles POST /auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var payload models.AuthPayload
	if err := bindJSON(c, &payload); err != nil {
		h.fail(c, err)
		return
	}

	body, err := h.credentials.Login(c.Request.Context(), payload.ClientID, payload.ClientSecret)
	if err != nil {
		h.metrics.RecordAuthAttempt("login", "failure")
		h.fail(c, err)
		return
	}

	h.metrics.RecordAuthAttempt("login", "success")
	c.JSON(http.StatusOK, body)
}

// ListProviders handles GET /providers.
func (h *Handlers) ListProviders(c *gin.Context) {
	providers, err := h.catalog.ListProviders(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, providers)
}

// CreateProvider handles POST /providers.
func (h *Handlers) CreateProvider(c *gin.Context) {
	var in models.ProviderInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, err)
		return
	}

	id, err := h.catalog.CreateProvider(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created(service.ResourceProvider, id))
}

// GetProvider handles GET /providers/:id.
func (h *Handlers) GetProvider(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	provider, err := h.catalog.GetProvider(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

// UpdateProvider handles PUT /providers/:id.
func (h *Handlers) UpdateProvider(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var in models.ProviderInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.catalog.UpdateProvider(c.Request.Context(), id, in); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated(service.ResourceProvider, id))
}

// DeleteProvider handles DELETE /providers/:id.
func (h *Handlers) DeleteProvider(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.catalog.DeleteProvider(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, deleted(service.ResourceProvider, id))
}

// ListProvidersWithZones handles GET /providers-with-zones.
func (h *Handlers) ListProvidersWithZones(c *gin.Context) {
	providers, err := h.catalog.ListProvidersWithZones(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, providers)
}

// ListProviderZones handles GET /providers/:id/zones.
func (h *Handlers) ListProviderZones(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	zones, err := h.catalog.ListProviderZones(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

type zoneIDsRequest struct {
	ZoneIDs []int64 `json:"zone_ids"`
}

// AddZonesToProvider handles POST /providers/:id/zones.
func (h *Handlers) AddZonesToProvider(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req zoneIDsRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.catalog.AddZonesToProvider(c.Request.Context(), id, req.ZoneIDs); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse{
		ID:      id,
		Message: fmt.Sprintf("Added %d zones to provider with id: %d", len(req.ZoneIDs), id),
	})
}

// RemoveZoneFromProvider handles DELETE /providers/:id/zones/:zone_id.
func (h *Handlers) RemoveZoneFromProvider(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	zoneID, err := pathID(c, "zone_id")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.catalog.RemoveZoneFromProvider(c.Request.Context(), id, zoneID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{
		ID:      id,
		Message: fmt.Sprintf("Removed delivery zone %d from provider with id: %d", zoneID, id),
	})
}

// ListZones handles GET /zones.
func (h *Handlers) ListZones(c *gin.Context) {
	zones, err := h.catalog.ListZones(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

// CreateZone handles POST /zones.
func (h *Handlers) CreateZone(c *gin.Context) {
	var in models.DeliveryZoneInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, err)
		return
	}

	id, err := h.catalog.CreateZone(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created(service.ResourceDeliveryZone, id))
}

// GetZone handles GET /zones/:id.
func (h *Handlers) GetZone(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	zone, err := h.catalog.GetZone(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, zone)
}

// UpdateZone handles PUT /zones/:id.
func (h *Handlers) UpdateZone(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var in models.DeliveryZoneInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.catalog.UpdateZone(c.Request.Context(), id, in); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated(service.ResourceDeliveryZone, id))
}

// DeleteZone handles DELETE /zones/:id.
func (h *Handlers) DeleteZone(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.catalog.DeleteZone(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, deleted(service.ResourceDeliveryZone, id))
}

// ListPrices handles GET /prices.
func (h *Handlers) ListPrices(c *gin.Context) {
	prices, err := h.catalog.ListPrices(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

// GetPrice handles GET /prices/:id.
func (h *Handlers) GetPrice(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	price, err := h.catalog.GetPrice(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, price)
}

// DeletePrice handles DELETE /prices/:id.
func (h *Handlers) DeletePrice(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.catalog.DeletePrice(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, deleted(service.ResourcePrice, id))
}

// priceQueryParams are the query parameters of a provider price listing.
type priceQueryParams struct {
	Limit  int64  `form:"limit"`
	Offset int64  `form:"offset"`
	Start  string `form:"start"`
	End    string `form:"end"`
}

// queryTimeLayouts are tried in order. Timestamps without an offset are UTC.
var queryTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

func parseQueryTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range queryTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return &t, nil
		}
	}
	return nil, errInvalidRequest{fmt.Errorf("%s must be a timestamp like 2024-01-01T00:00:00Z or 2024-01-01T00:00:00", name)}
}

// ListProviderPrices handles GET /providers/:id/prices.
func (h *Handlers) ListProviderPrices(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var params priceQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.fail(c, errInvalidRequest{err})
		return
	}
	start, err := parseQueryTime("start", params.Start)
	if err != nil {
		h.fail(c, err)
		return
	}
	end, err := parseQueryTime("end", params.End)
	if err != nil {
		h.fail(c, err)
		return
	}

	prices, err := h.catalog.ListProviderPrices(c.Request.Context(), id, models.PriceQuery{
		Limit:  params.Limit,
		Offset: params.Offset,
		Start:  start,
		End:    end,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

// CreatePrice handles POST /providers/:id/prices.
func (h *Handlers) CreatePrice(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var in models.PriceInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, err)
		return
	}

	priceID, err := h.catalog.CreatePrice(c.Request.Context(), id, in.Price)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created(service.ResourcePrice, priceID))
}

// ListScrapingRuns handles GET /scraping-runs.
func (h *Handlers) ListScrapingRuns(c *gin.Context) {
	runs, err := h.catalog.ListScrapingRuns(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

// LastScrapingRun handles GET /scraping-runs/last.
func (h *Handlers) LastScrapingRun(c *gin.Context) {
	run, err := h.catalog.LastScrapingRun(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// CreateScrapingRun handles POST /scraping-runs.
func (h *Handlers) CreateScrapingRun(c *gin.Context) {
	var in models.ScrapingRunInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, err)
		return
	}

	id, err := h.catalog.CreateScrapingRun(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created(service.ResourceScrapingRun, id))
}
