package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wellnessgrid/backend/internal/apierror"
	"github.com/wellnessgrid/backend/internal/service"
)

// ScoreHandler handles wellness score requests
type ScoreHandler struct {
	wellnessService service.WellnessService
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(wellnessService service.WellnessService) *ScoreHandler {
	return &ScoreHandler{wellnessService: wellnessService}
}

// CalculateScore computes and stores a score for the period
// POST /api/v1/score?period=7d
func (h *ScoreHandler) CalculateScore(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	score, err := h.wellnessService.CalculateScore(c.Request.Context(), userID, c.Query("period"))
	if err != nil {
		writeServiceError(c, err, "failed to calculate score")
		return
	}

	c.JSON(http.StatusOK, score)
}

// GetHistory returns stored scores, newest first
// GET /api/v1/score/history?period=7d&limit=30
func (h *ScoreHandler) GetHistory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			apierror.WriteProblem(c, apierror.NewValidationError(apierror.GetRequestID(c), []apierror.FieldError{
				{Field: "limit", Message: "must be an integer", Code: "invalid_format"},
			}))
			return
		}
		limit = n
	}

	scores, err := h.wellnessService.GetHistory(c.Request.Context(), userID, c.Query("period"), limit)
	if err != nil {
		writeServiceError(c, err, "failed to load score history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scores": scores,
		"count":  len(scores),
	})
}
