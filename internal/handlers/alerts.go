package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wellnessgrid/backend/internal/apierror"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/service"
)

// AlertHandler handles threshold alert requests
type AlertHandler struct {
	alertService service.AlertService
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertService service.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// GetAlerts lists active alerts
// GET /api/v1/alerts?unread_only=true&include_dismissed=false&limit=50
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var filter models.AlertFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		apierror.WriteProblem(c, apierror.FromBindError(apierror.GetRequestID(c), err))
		return
	}

	alerts, err := h.alertService.List(c.Request.Context(), userID, filter)
	if err != nil {
		writeServiceError(c, err, "failed to list alerts")
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// CheckAlerts evaluates the alert rules against recent entries
// POST /api/v1/alerts/check
func (h *AlertHandler) CheckAlerts(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	alerts, err := h.alertService.Check(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "failed to check alerts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"raised": len(alerts),
	})
}

// MarkRead flags an alert as read
// POST /api/v1/alerts/:id/read
func (h *AlertHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	alert, err := h.alertService.MarkRead(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "failed to mark alert read")
		return
	}

	c.JSON(http.StatusOK, alert)
}

// Dismiss hides an alert from listings
// POST /api/v1/alerts/:id/dismiss
func (h *AlertHandler) Dismiss(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	alert, err := h.alertService.Dismiss(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "failed to dismiss alert")
		return
	}

	c.JSON(http.StatusOK, alert)
}
