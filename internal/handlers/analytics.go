package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wellnessgrid/backend/internal/apierror"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/service"
)

// AnalyticsHandler handles analytics-related HTTP requests
type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// GetAnalytics returns trends, streaks and optionally correlations and the
// current score for a time range
// GET /api/v1/analytics?range=30d&correlations=true&score=true
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var opts models.AnalyticsOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		apierror.WriteProblem(c, apierror.FromBindError(apierror.GetRequestID(c), err))
		return
	}

	payload, err := h.analyticsService.GetAnalytics(c.Request.Context(), userID, opts)
	if err != nil {
		writeServiceError(c, err, "failed to compute analytics")
		return
	}

	c.JSON(http.StatusOK, payload)
}
