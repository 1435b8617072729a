package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
	"github.com/noah-isme/substitute-finder-api/pkg/response"
)

type analyticsProvider interface {
	ResolveRange(raw string) models.TimeRange
	Snapshot(ctx context.Context, r models.TimeRange) (*models.AnalyticsSnapshot, bool, error)
	Dashboard(ctx context.Context) (*models.DashboardOverview, bool, error)
	Invalidate(ctx context.Context) error
	SystemMetrics() models.AnalyticsSystemMetrics
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsProvider
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsProvider) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Dashboard godoc
// @Summary Dashboard overview
// @Description Request counts, fill rate, user counts and upcoming open requests
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrFeatureDisabled)
		return
	}
	overview, cacheHit, err := h.analytics.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, responseMeta(c, cacheHit))
}

// Snapshot godoc
// @Summary Analytics snapshot
// @Description Fill rate, trends and performance tables for a lookback window
// @Tags Analytics
// @Produce json
// @Param range query string false "30d, 90d or 1y"
// @Success 200 {object} response.Envelope
// @Router /analytics [get]
func (h *AnalyticsHandler) Snapshot(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrFeatureDisabled)
		return
	}
	r := h.analytics.ResolveRange(c.Query("range"))
	snapshot, cacheHit, err := h.analytics.Snapshot(c.Request.Context(), r)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := responseMeta(c, cacheHit)
	meta["range"] = r
	response.JSON(c, http.StatusOK, snapshot, meta)
}

// Refresh godoc
// @Summary Drop cached analytics
// @Tags Analytics
// @Success 204
// @Router /analytics/refresh [post]
func (h *AnalyticsHandler) Refresh(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrFeatureDisabled)
		return
	}
	if err := h.analytics.Invalidate(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// System godoc
// @Summary Analytics instrumentation
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrFeatureDisabled)
		return
	}
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics())
}
