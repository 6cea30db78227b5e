package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/service"
)

// InsightsHandler handles insights-related HTTP requests
type InsightsHandler struct {
	insightService service.InsightService
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(insightService service.InsightService) *InsightsHandler {
	return &InsightsHandler{
		insightService: insightService,
	}
}

// GenerateInsight produces a new insight. Unknown types fall back to on_demand.
// POST /api/v1/insights?type=on_demand
func (h *InsightsHandler) GenerateInsight(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	insightType := models.ParseInsightType(c.Query("type"))
	logger.Ctx(c.Request.Context()).Debug("insight requested", logger.String("type", string(insightType)))

	insight, err := h.insightService.Generate(c.Request.Context(), userID, insightType, "requested by user")
	if err != nil {
		writeServiceError(c, err, "failed to generate insight")
		return
	}

	c.JSON(http.StatusCreated, insight)
}

// GetLatest returns the most recent insight
// GET /api/v1/insights/latest
func (h *InsightsHandler) GetLatest(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	insight, err := h.insightService.Latest(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "failed to load latest insight")
		return
	}

	c.JSON(http.StatusOK, insight)
}
