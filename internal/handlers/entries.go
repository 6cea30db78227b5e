package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wellnessgrid/backend/internal/apierror"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/service"
)

// EntryHandler handles tracker entry requests
type EntryHandler struct {
	entryService service.EntryService
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(entryService service.EntryService) *EntryHandler {
	return &EntryHandler{entryService: entryService}
}

// CreateEntry records a tracker entry and returns any alerts it raised
// POST /api/v1/entries
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.WriteProblem(c, apierror.FromBindError(apierror.GetRequestID(c), err))
		return
	}
	if req.ID != "" {
		c.Set("entry_id", req.ID)
	}

	result, err := h.entryService.Record(c.Request.Context(), userID, &req)
	if err != nil {
		writeServiceError(c, err, "failed to record entry")
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetEntries lists entries newest first
// GET /api/v1/entries?tool_id=&since=&until=&limit=
func (h *EntryHandler) GetEntries(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	filter := models.EntryFilter{ToolID: c.Query("tool_id")}
	var fieldErrors []apierror.FieldError

	if filter.ToolID != "" && !models.IsKnownTool(filter.ToolID) {
		fieldErrors = append(fieldErrors, apierror.FieldError{
			Field:   "tool_id",
			Message: "must be a known tracker tool id",
			Code:    "toolid",
		})
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"since", &filter.Since}, {"until", &filter.Until}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fieldErrors = append(fieldErrors, apierror.FieldError{
				Field:   p.name,
				Message: "must be a valid RFC3339 timestamp",
				Code:    "invalid_format",
			})
			continue
		}
		*p.dst = ts
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			fieldErrors = append(fieldErrors, apierror.FieldError{
				Field:   "limit",
				Message: "must be a positive integer",
				Code:    "invalid_format",
			})
		}
		filter.Limit = limit
	}

	if len(fieldErrors) > 0 {
		apierror.WriteProblem(c, apierror.NewValidationError(apierror.GetRequestID(c), fieldErrors))
		return
	}

	entries, err := h.entryService.List(c.Request.Context(), userID, filter)
	if err != nil {
		writeServiceError(c, err, "failed to list entries")
		return
	}

	c.JSON(http.StatusOK, entries)
}
