// Package handlers exposes the wellness services over HTTP. Every handler
// expects the auth middleware to have set "user_id" on the gin context.
package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wellnessgrid/backend/internal/apierror"
	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/service"
)

// RegisterValidators installs the "toolid" binding tag and makes validation
// errors report json field names. Call it once before serving requests.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("toolid", func(fl validator.FieldLevel) bool {
		return models.IsKnownTool(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register toolid validator: %w", err)
	}
	return nil
}

// requireUser returns the authenticated user id, writing a 401 when absent.
func requireUser(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
		return "", false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
		return "", false
	}
	return id, true
}

// writeServiceError maps service sentinels to problem details. Anything
// unrecognised is logged with msg and returned as an opaque 500.
func writeServiceError(c *gin.Context, err error, msg string) {
	requestID := apierror.GetRequestID(c)

	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		apierror.WriteProblem(c, apierror.NewProfileNotFoundError(requestID))
	case errors.Is(err, service.ErrAlertNotFound):
		apierror.WriteProblem(c, apierror.NewNotFoundError(requestID, "Alert", c.Param("id")))
	case errors.Is(err, service.ErrInsightNotFound):
		apierror.WriteProblem(c, apierror.NewNotFoundError(requestID, "Insight", ""))
	case errors.Is(err, service.ErrInvalidUUID), errors.Is(err, service.ErrNotUUIDv7):
		apierror.WriteProblem(c, apierror.NewInvalidUUIDError(requestID, "id", entryIDFromError(c)))
	case errors.Is(err, service.ErrFutureTimestamp):
		apierror.WriteProblem(c, apierror.NewFutureTimestampError(requestID, "id"))
	case errors.Is(err, service.ErrInvalidPeriod):
		field, value := periodParam(c)
		apierror.WriteProblem(c, apierror.NewInvalidPeriodError(requestID, field, value))
	case errors.Is(err, service.ErrInvalidEntry):
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, err.Error(), "The entry could not be recorded"))
	default:
		logger.Ctx(c.Request.Context()).Error(msg, logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
	}
}

func periodParam(c *gin.Context) (string, string) {
	if v, ok := c.GetQuery("range"); ok {
		return "range", v
	}
	return "period", c.Query("period")
}

func entryIDFromError(c *gin.Context) string {
	if id, ok := c.Get("entry_id"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
