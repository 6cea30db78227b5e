package service

import (
	"context"

	"github.com/wellnessgrid/backend/internal/models"
)

// EntryService defines the interface for tracker entry business logic
type EntryService interface {
	Record(ctx context.Context, userID string, req *models.CreateEntryRequest) (*models.RecordEntryResult, error)
	List(ctx context.Context, userID string, filter models.EntryFilter) ([]models.TrackingEntry, error)
}

// AnalyticsService defines the interface for derived analytics
type AnalyticsService interface {
	GetAnalytics(ctx context.Context, userID string, opts models.AnalyticsOptions) (*models.AnalyticsPayload, error)
	Invalidate(ctx context.Context, userID string) error
}

// WellnessService defines the interface for wellness score calculation
type WellnessService interface {
	CalculateScore(ctx context.Context, userID, period string) (*models.HealthScore, error)
	GetHistory(ctx context.Context, userID, period string, limit int) ([]models.HealthScore, error)
}

// AlertService defines the interface for threshold alerts
type AlertService interface {
	Check(ctx context.Context, userID string) ([]models.UserAlert, error)
	List(ctx context.Context, userID string, filter models.AlertFilter) ([]models.UserAlert, error)
	MarkRead(ctx context.Context, userID, alertID string) (*models.UserAlert, error)
	Dismiss(ctx context.Context, userID, alertID string) (*models.UserAlert, error)
}

// InsightService defines the interface for generated insights
type InsightService interface {
	Generate(ctx context.Context, userID string, insightType models.InsightType, reason string) (*models.HealthInsight, error)
	// EvaluateTrigger applies the trigger policy and generates an insight
	// when it fires. It returns nil when nothing was generated.
	EvaluateTrigger(ctx context.Context, userID string, newest *models.TrackingEntry) (*models.HealthInsight, error)
	Latest(ctx context.Context, userID string) (*models.HealthInsight, error)
}
